// Package pool reuses the buffers and zstd encoders of snapshot encoding.
//
// Saving a snapshot serializes the whole taxonomy, compresses it and hands
// the bytes to the snapshot store. In watch mode that happens after every
// reclassification, so the encoder (whose window allocations dominate) and
// the staging buffer are pooled.
//
// Usage:
//
//	buf := pool.GetBuffer()
//	defer pool.PutBuffer(buf)
//
//	enc, err := pool.GetEncoder(buf)
//	if err != nil {
//		return err
//	}
//	defer pool.PutEncoder(enc)
package pool

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// PoolConfig configures object pooling behavior.
type PoolConfig struct {
	// Enabled controls whether pooling is active
	Enabled bool

	// MaxBufferSize is the largest buffer capacity returned to the pool.
	MaxBufferSize int
}

var globalConfig = PoolConfig{
	Enabled:       true,
	MaxBufferSize: 4 << 20,
}

// Configure sets global pool configuration.
// Should be called early during initialization.
func Configure(config PoolConfig) {
	globalConfig = config

	// Drop pooled objects made under the previous settings
	initPools()
}

func initPools() {
	bufferPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 4096))
		},
	}
	encoderPool = sync.Pool{}
}

// IsEnabled returns whether pooling is enabled.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// =============================================================================
// Buffer Pool
// =============================================================================

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer returns an empty buffer from the pool.
// Call PutBuffer when done.
func GetBuffer() *bytes.Buffer {
	if !globalConfig.Enabled {
		return new(bytes.Buffer)
	}
	b := bufferPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// PutBuffer returns a buffer to the pool. The caller must not keep
// references to its bytes.
func PutBuffer(b *bytes.Buffer) {
	if !globalConfig.Enabled || b == nil {
		return
	}
	if b.Cap() > globalConfig.MaxBufferSize {
		return
	}
	b.Reset()
	bufferPool.Put(b)
}

// =============================================================================
// Encoder Pool
// =============================================================================

var encoderPool sync.Pool

// GetEncoder returns a zstd encoder writing a new stream to w.
// Close it to finish the stream, then call PutEncoder.
func GetEncoder(w io.Writer) (*zstd.Encoder, error) {
	if globalConfig.Enabled {
		if enc, ok := encoderPool.Get().(*zstd.Encoder); ok {
			enc.Reset(w)
			return enc, nil
		}
	}
	return zstd.NewWriter(w)
}

// PutEncoder returns an encoder to the pool. The encoder must be closed.
func PutEncoder(enc *zstd.Encoder) {
	if !globalConfig.Enabled || enc == nil {
		return
	}
	encoderPool.Put(enc)
}
