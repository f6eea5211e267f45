// Package modularity tracks, for every entity of a knowledge base, the module
// of statements relevant to it, and reports which entities' modules an edit
// changed.
//
// The classifier feeds every ontology change to an Extractor, asks it whether
// the pending changes can affect the class hierarchy at all, and when they
// can, whether the hierarchy can be repaired incrementally:
//
//	ex := modularity.NewBottomExtractor()
//	ex.AddStatement(axiom.SubClass(axiom.Class("A"), axiom.Class("B")))
//	_ = ex.ExtractModules(ctx)
//
//	ex.AddStatement(axiom.SubClass(axiom.Class("A"), axiom.Class("D")))
//	if ex.CanUpdate() {
//		affected, _ := ex.ApplyChanges(ctx)
//		sub := ex.ModuleFromSignature(affected) // reclassify only this
//	}
package modularity

import (
	"context"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
)

// Extractor maintains per-entity modules under a stream of edits.
type Extractor interface {
	// AddStatement queues an addition. Adding a statement whose deletion is
	// pending cancels the deletion.
	AddStatement(st axiom.Statement)

	// DeleteStatement queues a deletion. Deleting a statement whose addition
	// is pending cancels the addition.
	DeleteStatement(st axiom.Statement)

	// IsChanged reports whether edits are pending.
	IsChanged() bool

	// IsClassificationNeeded reports whether the pending edits can change the
	// class hierarchy of a knowledge base of the given expressivity.
	IsClassificationNeeded(e reasoner.Expressivity) bool

	// CanUpdate reports whether the pending edits can be applied
	// incrementally. It is false before modules were first extracted and
	// whenever an edit is relevant to every module.
	CanUpdate() bool

	// ApplyChanges applies the pending edits, recomputes the modules they can
	// touch and returns the affected entities: those whose module changed,
	// plus every entity in the signature of their new modules.
	ApplyChanges(ctx context.Context) ([]axiom.Entity, error)

	// ExtractModules applies the pending edits and recomputes every module.
	ExtractModules(ctx context.Context) error

	// ModuleFromSignature returns the union of the modules of sig, plus a
	// declaration of every known class of sig so that a class whose module is
	// empty still shows up in a reasoner built from the result.
	ModuleFromSignature(sig []axiom.Entity) []axiom.Statement

	// Module returns the module of one entity.
	Module(e axiom.Entity) []axiom.Statement

	// Statements returns the known statements, pending edits included.
	Statements() []axiom.Statement

	// Restore replaces all state with stmts and extracts their modules.
	Restore(ctx context.Context, stmts []axiom.Statement) error

	// Copy returns an independent copy.
	Copy() Extractor
}
