package axiom

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrOntologyExists   = errors.New("axiom: ontology already exists")
	ErrOntologyDetached = errors.New("axiom: ontology is not attached to a manager")
)

// Manager owns a set of ontologies and fans their changes out to listeners.
type Manager struct {
	mu         sync.RWMutex
	ontologies map[string]*Ontology
	listeners  map[int]Listener
	nextID     int
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{
		ontologies: make(map[string]*Ontology),
		listeners:  make(map[int]Listener),
	}
}

// CreateOntology creates an empty ontology with the given id.
func (m *Manager) CreateOntology(id string) (*Ontology, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ontologies[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrOntologyExists, id)
	}
	o := &Ontology{
		id:         id,
		manager:    m,
		statements: make(map[string]Statement),
	}
	m.ontologies[id] = o
	return o, nil
}

// CopyOntology creates a new ontology holding the statements and imports of
// src. Changes to the copy do not affect src.
func (m *Manager) CopyOntology(src *Ontology, id string) (*Ontology, error) {
	o, err := m.CreateOntology(id)
	if err != nil {
		return nil, err
	}
	src.mu.RLock()
	for k, st := range src.statements {
		o.statements[k] = st
	}
	o.imports = append(o.imports, src.imports...)
	src.mu.RUnlock()
	return o, nil
}

// Ontology looks up an ontology by id.
func (m *Manager) Ontology(id string) (*Ontology, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.ontologies[id]
	return o, ok
}

// Ontologies returns all attached ontologies ordered by id.
func (m *Manager) Ontologies() []*Ontology {
	m.mu.RLock()
	out := make([]*Ontology, 0, len(m.ontologies))
	for _, o := range m.ontologies {
		out = append(out, o)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Contains reports whether o is attached to m.
func (m *Manager) Contains(o *Ontology) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cur, ok := m.ontologies[o.id]
	return ok && cur == o
}

// Remove detaches o from m. A detached ontology can still be edited but its
// changes are no longer delivered to listeners.
func (m *Manager) Remove(o *Ontology) {
	m.mu.Lock()
	if cur, ok := m.ontologies[o.id]; ok && cur == o {
		delete(m.ontologies, o.id)
	}
	m.mu.Unlock()

	o.mu.Lock()
	if o.manager == m {
		o.manager = nil
	}
	o.mu.Unlock()
}

// AddListener registers l and returns a function that unregisters it.
func (m *Manager) AddListener(l Listener) (remove func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	m.mu.RLock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, m.listeners[id])
	}
	m.mu.RUnlock()

	for _, l := range ls {
		l(changes)
	}
}

// Ontology is a named, mutable set of statements that may import other
// ontologies.
type Ontology struct {
	id         string
	mu         sync.RWMutex
	manager    *Manager
	statements map[string]Statement
	imports    []*Ontology
}

// ID returns the ontology identifier.
func (o *Ontology) ID() string { return o.id }

// Manager returns the owning manager, or nil once the ontology is detached.
func (o *Ontology) Manager() *Manager {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.manager
}

// Add inserts statements and returns the changes that took effect.
func (o *Ontology) Add(stmts ...Statement) []Change {
	changes := make([]Change, 0, len(stmts))
	for _, st := range stmts {
		changes = append(changes, Change{Op: AddStatement, Ontology: o, Statement: st})
	}
	return o.Apply(changes)
}

// Remove deletes statements and returns the changes that took effect.
func (o *Ontology) Remove(stmts ...Statement) []Change {
	changes := make([]Change, 0, len(stmts))
	for _, st := range stmts {
		changes = append(changes, Change{Op: RemoveStatement, Ontology: o, Statement: st})
	}
	return o.Apply(changes)
}

// Replace makes the statements asserted directly in o equal to stmts, as a
// single batch: removals first, then additions.
func (o *Ontology) Replace(stmts ...Statement) []Change {
	want := make(map[string]bool, len(stmts))
	for _, st := range stmts {
		want[st.String()] = true
	}
	var changes []Change
	for _, st := range o.Statements() {
		if !want[st.String()] {
			changes = append(changes, Change{Op: RemoveStatement, Ontology: o, Statement: st})
		}
	}
	for _, st := range stmts {
		changes = append(changes, Change{Op: AddStatement, Ontology: o, Statement: st})
	}
	return o.Apply(changes)
}

// Apply performs changes in order. Changes that target another ontology, add
// a present statement or remove an absent one are dropped. The effective
// changes are delivered to the manager's listeners.
func (o *Ontology) Apply(changes []Change) []Change {
	o.mu.Lock()
	var applied []Change
	for _, c := range changes {
		if c.Ontology != nil && c.Ontology != o {
			continue
		}
		key := c.Statement.String()
		_, present := o.statements[key]
		switch c.Op {
		case AddStatement:
			if present {
				continue
			}
			o.statements[key] = c.Statement
		case RemoveStatement:
			if !present {
				continue
			}
			delete(o.statements, key)
		default:
			continue
		}
		applied = append(applied, Change{Op: c.Op, Ontology: o, Statement: c.Statement})
	}
	m := o.manager
	o.mu.Unlock()

	if m != nil {
		m.notify(applied)
	}
	return applied
}

// Contains reports whether st is asserted directly in o.
func (o *Ontology) Contains(st Statement) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.statements[st.String()]
	return ok
}

// Len returns the number of statements asserted directly in o.
func (o *Ontology) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.statements)
}

// Statements returns the statements asserted directly in o, in canonical
// order.
func (o *Ontology) Statements() []Statement {
	o.mu.RLock()
	out := make([]Statement, 0, len(o.statements))
	for _, st := range o.statements {
		out = append(out, st)
	}
	o.mu.RUnlock()
	sortStatements(out)
	return out
}

// Import makes other part of o's imports closure.
func (o *Ontology) Import(other *Ontology) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, imp := range o.imports {
		if imp == other {
			return
		}
	}
	o.imports = append(o.imports, other)
}

// Imports returns the ontologies directly imported by o.
func (o *Ontology) Imports() []*Ontology {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]*Ontology(nil), o.imports...)
}

// ImportsClosure returns o followed by every ontology reachable through
// imports, each once.
func (o *Ontology) ImportsClosure() []*Ontology {
	seen := map[*Ontology]bool{o: true}
	out := []*Ontology{o}
	for i := 0; i < len(out); i++ {
		for _, imp := range out[i].Imports() {
			if !seen[imp] {
				seen[imp] = true
				out = append(out, imp)
			}
		}
	}
	return out
}

// ClosureStatements returns the union of the statements of o's imports
// closure in canonical order.
func (o *Ontology) ClosureStatements() []Statement {
	set := make(map[string]Statement)
	for _, ont := range o.ImportsClosure() {
		for _, st := range ont.Statements() {
			set[st.String()] = st
		}
	}
	out := make([]Statement, 0, len(set))
	for _, st := range set {
		out = append(out, st)
	}
	sortStatements(out)
	return out
}
