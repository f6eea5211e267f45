package storage

import (
	"errors"
	"time"
)

// Errors returned by the store.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidName    = errors.New("invalid snapshot name")
	ErrInvalidOptions = errors.New("invalid storage options")
	ErrInvalidData    = errors.New("invalid data")
	ErrCorrupt        = errors.New("corrupt snapshot")
	ErrStorageClosed  = errors.New("storage closed")
)

// SnapshotInfo describes one stored version of a named snapshot.
type SnapshotInfo struct {
	Name      string    `json:"name"`
	Version   uint64    `json:"version"`
	Digest    string    `json:"digest"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
