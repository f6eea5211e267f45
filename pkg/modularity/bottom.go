package modularity

import (
	"context"
	"slices"
	"sync"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
)

type module struct {
	stmts map[string]bool
	sig   signature
}

func (m *module) equal(o *module) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.stmts) != len(o.stmts) {
		return false
	}
	for k := range m.stmts {
		if !o.stmts[k] {
			return false
		}
	}
	return true
}

// BottomExtractor computes syntactic bottom-locality modules, one per entity
// of the signature.
type BottomExtractor struct {
	mu sync.Mutex

	stmts    map[string]axiom.Statement
	bySymbol map[axiom.Entity][]string
	globals  map[string]bool

	additions map[string]axiom.Statement
	deletions map[string]axiom.Statement

	modules   map[axiom.Entity]*module
	extracted bool
}

var _ Extractor = (*BottomExtractor)(nil)

// NewBottomExtractor returns an empty extractor.
func NewBottomExtractor() *BottomExtractor {
	return &BottomExtractor{
		stmts:     make(map[string]axiom.Statement),
		bySymbol:  make(map[axiom.Entity][]string),
		globals:   make(map[string]bool),
		additions: make(map[string]axiom.Statement),
		deletions: make(map[string]axiom.Statement),
		modules:   make(map[axiom.Entity]*module),
	}
}

func (x *BottomExtractor) AddStatement(st axiom.Statement) {
	x.mu.Lock()
	defer x.mu.Unlock()
	key := st.String()
	if _, ok := x.deletions[key]; ok {
		delete(x.deletions, key)
		return
	}
	if _, ok := x.stmts[key]; ok {
		return
	}
	x.additions[key] = st
}

func (x *BottomExtractor) DeleteStatement(st axiom.Statement) {
	x.mu.Lock()
	defer x.mu.Unlock()
	key := st.String()
	if _, ok := x.additions[key]; ok {
		delete(x.additions, key)
		return
	}
	if _, ok := x.stmts[key]; !ok {
		return
	}
	x.deletions[key] = st
}

func (x *BottomExtractor) IsChanged() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.additions) > 0 || len(x.deletions) > 0
}

func (x *BottomExtractor) IsClassificationNeeded(e reasoner.Expressivity) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, pending := range []map[string]axiom.Statement{x.additions, x.deletions} {
		for _, st := range pending {
			if !st.IsABox() || e.HasNominals() {
				return true
			}
		}
	}
	return x.classSignatureChanged()
}

// classSignatureChanged reports whether the pending edits bring in a class no
// statement mentions yet, or delete the last statement mentioning one.
// Caller holds mu.
func (x *BottomExtractor) classSignatureChanged() bool {
	for _, st := range x.additions {
		for _, e := range st.Signature() {
			if e.Type == axiom.ClassEntity && len(x.bySymbol[e]) == 0 {
				return true
			}
		}
	}
	for _, st := range x.deletions {
		for _, e := range st.Signature() {
			if e.Type == axiom.ClassEntity && !x.mentionedAfterApply(e) {
				return true
			}
		}
	}
	return false
}

// mentionedAfterApply reports whether some statement will still mention e
// once the pending edits are applied. Caller holds mu.
func (x *BottomExtractor) mentionedAfterApply(e axiom.Entity) bool {
	for _, key := range x.bySymbol[e] {
		if _, deleted := x.deletions[key]; !deleted {
			return true
		}
	}
	for _, st := range x.additions {
		if slices.Contains(st.Signature(), e) {
			return true
		}
	}
	return false
}

func (x *BottomExtractor) CanUpdate() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.extracted {
		return false
	}
	for _, pending := range []map[string]axiom.Statement{x.additions, x.deletions} {
		for _, st := range pending {
			if global(st) {
				return false
			}
		}
	}
	return true
}

// apply moves pending edits into the statement set and returns the
// signature they touch.
func (x *BottomExtractor) apply() signature {
	touched := make(signature)
	for key, st := range x.deletions {
		for _, e := range st.Signature() {
			touched[e] = true
			x.bySymbol[e] = slices.DeleteFunc(x.bySymbol[e], func(k string) bool { return k == key })
			if len(x.bySymbol[e]) == 0 {
				delete(x.bySymbol, e)
			}
		}
		delete(x.stmts, key)
		delete(x.globals, key)
	}
	for key, st := range x.additions {
		x.stmts[key] = st
		for _, e := range st.Signature() {
			touched[e] = true
			x.bySymbol[e] = append(x.bySymbol[e], key)
		}
		if global(st) {
			x.globals[key] = true
		}
	}
	x.additions = make(map[string]axiom.Statement)
	x.deletions = make(map[string]axiom.Statement)
	return touched
}

// extract computes the module of seed as a fixpoint: a statement joins once
// it is non-local for the signature collected so far, and its symbols join
// the signature.
func (x *BottomExtractor) extract(seed axiom.Entity) *module {
	m := &module{stmts: make(map[string]bool), sig: signature{seed: true}}
	queue := []axiom.Entity{seed}
	include := func(key string) {
		m.stmts[key] = true
		for _, e := range x.stmts[key].Signature() {
			if !m.sig[e] {
				m.sig[e] = true
				queue = append(queue, e)
			}
		}
	}
	for key := range x.globals {
		include(key)
	}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		for _, key := range x.bySymbol[e] {
			if !m.stmts[key] && nonLocal(x.stmts[key], m.sig) {
				include(key)
			}
		}
	}
	return m
}

func (x *BottomExtractor) ApplyChanges(ctx context.Context) ([]axiom.Entity, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	touched := x.apply()
	candidates := make(signature)
	for e := range touched {
		candidates[e] = true
	}
	for e, m := range x.modules {
		for t := range touched {
			if m.sig[t] {
				candidates[e] = true
				break
			}
		}
	}

	affected := make(signature)
	var changed []*module
	for e := range candidates {
		if err := reasoner.CheckContext(ctx); err != nil {
			return nil, err
		}
		old := x.modules[e]
		var cur *module
		if _, known := x.bySymbol[e]; known {
			cur = x.extract(e)
			x.modules[e] = cur
		} else {
			delete(x.modules, e)
		}
		if !old.equal(cur) {
			affected[e] = true
			if cur != nil {
				changed = append(changed, cur)
			}
		}
	}
	for _, m := range changed {
		for e := range m.sig {
			affected[e] = true
		}
	}
	return sortedEntities(affected), nil
}

func (x *BottomExtractor) ExtractModules(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.apply()
	modules := make(map[axiom.Entity]*module, len(x.bySymbol))
	for e := range x.bySymbol {
		if err := reasoner.CheckContext(ctx); err != nil {
			return err
		}
		modules[e] = x.extract(e)
	}
	x.modules = modules
	x.extracted = true
	return nil
}

func (x *BottomExtractor) ModuleFromSignature(sig []axiom.Entity) []axiom.Statement {
	x.mu.Lock()
	defer x.mu.Unlock()
	keys := make(map[string]bool)
	var declared []axiom.Statement
	for _, e := range sig {
		m, ok := x.modules[e]
		if !ok {
			continue
		}
		for k := range m.stmts {
			keys[k] = true
		}
		if e.Type == axiom.ClassEntity {
			declared = append(declared, axiom.Declare(e))
		}
	}
	out := x.collect(keys)
	for _, d := range declared {
		if !keys[d.String()] {
			out = append(out, d)
		}
	}
	return axiom.SortStatements(out)
}

func (x *BottomExtractor) Module(e axiom.Entity) []axiom.Statement {
	x.mu.Lock()
	defer x.mu.Unlock()
	m, ok := x.modules[e]
	if !ok {
		return nil
	}
	return x.collect(m.stmts)
}

func (x *BottomExtractor) collect(keys map[string]bool) []axiom.Statement {
	out := make([]axiom.Statement, 0, len(keys))
	for k := range keys {
		out = append(out, x.stmts[k])
	}
	return axiom.SortStatements(out)
}

func (x *BottomExtractor) Statements() []axiom.Statement {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]axiom.Statement, 0, len(x.stmts)+len(x.additions))
	for k, st := range x.stmts {
		if _, deleted := x.deletions[k]; !deleted {
			out = append(out, st)
		}
	}
	for _, st := range x.additions {
		out = append(out, st)
	}
	return axiom.SortStatements(out)
}

func (x *BottomExtractor) Restore(ctx context.Context, stmts []axiom.Statement) error {
	x.mu.Lock()
	x.stmts = make(map[string]axiom.Statement)
	x.bySymbol = make(map[axiom.Entity][]string)
	x.globals = make(map[string]bool)
	x.additions = make(map[string]axiom.Statement, len(stmts))
	x.deletions = make(map[string]axiom.Statement)
	x.modules = make(map[axiom.Entity]*module)
	x.extracted = false
	for _, st := range stmts {
		x.additions[st.String()] = st
	}
	x.mu.Unlock()
	return x.ExtractModules(ctx)
}

func (x *BottomExtractor) Copy() Extractor {
	x.mu.Lock()
	defer x.mu.Unlock()
	c := NewBottomExtractor()
	c.extracted = x.extracted
	for k, st := range x.stmts {
		c.stmts[k] = st
	}
	for e, keys := range x.bySymbol {
		c.bySymbol[e] = slices.Clone(keys)
	}
	for k := range x.globals {
		c.globals[k] = true
	}
	for k, st := range x.additions {
		c.additions[k] = st
	}
	for k, st := range x.deletions {
		c.deletions[k] = st
	}
	for e, m := range x.modules {
		cm := &module{stmts: make(map[string]bool, len(m.stmts)), sig: make(signature, len(m.sig))}
		for k := range m.stmts {
			cm.stmts[k] = true
		}
		for s := range m.sig {
			cm.sig[s] = true
		}
		c.modules[e] = cm
	}
	return c
}

func sortedEntities(s signature) []axiom.Entity {
	out := make([]axiom.Entity, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b axiom.Entity) int {
		if a.Type != b.Type {
			return int(a.Type) - int(b.Type)
		}
		switch {
		case a.IRI < b.IRI:
			return -1
		case a.IRI > b.IRI:
			return 1
		}
		return 0
	})
	return out
}
