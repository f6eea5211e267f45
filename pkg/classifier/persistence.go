package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/klauspost/compress/zstd"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/pool"
	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
)

const snapshotVersion = 1

// snapshot is the persisted state of a classifier. Nodes are listed in
// topological order so that every super precedes its subs.
type snapshot struct {
	Version    int               `json:"version"`
	Statements []string          `json:"statements"`
	Classified bool              `json:"classified"`
	Realized   bool              `json:"realized"`
	Taxonomy   *taxonomySnapshot `json:"taxonomy,omitempty"`
}

type taxonomySnapshot struct {
	Top    axiom.IRI      `json:"top"`
	Bottom axiom.IRI      `json:"bottom"`
	Nodes  []nodeSnapshot `json:"nodes"`
}

type nodeSnapshot struct {
	Equivalents []axiom.IRI `json:"equivalents"`
	Supers      []axiom.IRI `json:"supers,omitempty"`
	Instances   []axiom.IRI `json:"instances,omitempty"`
}

// Save writes the module state, the taxonomy and its instance caches as
// zstd compressed JSON. A classifier with pending changes that affect the
// hierarchy is saved as unclassified.
func (c *Classifier) Save(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}

	stmts := c.extractor.Statements()
	snap := snapshot{
		Version:    snapshotVersion,
		Statements: make([]string, len(stmts)),
		Classified: c.isClassified() && !c.extractor.IsChanged(),
	}
	snap.Realized = snap.Classified && c.realized
	for i, st := range stmts {
		snap.Statements[i] = st.String()
	}
	if c.taxonomy != nil {
		snap.Taxonomy = &taxonomySnapshot{
			Top:    c.taxonomy.Top().Name(),
			Bottom: c.taxonomy.Bottom().Name(),
		}
		for _, n := range c.taxonomy.TopologicalSort() {
			ns := nodeSnapshot{Equivalents: n.Equivalents()}
			for _, s := range n.Supers() {
				ns.Supers = append(ns.Supers, s.Name())
			}
			if snap.Realized {
				ns.Instances, _ = n.Instances()
			}
			snap.Taxonomy.Nodes = append(snap.Taxonomy.Nodes, ns)
		}
	}

	enc, err := pool.GetEncoder(w)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}
	pool.PutEncoder(enc)
	c.log.Debug("snapshot saved",
		"statements", len(stmts),
		"classified", snap.Classified,
		"realized", snap.Realized)
	return nil
}

// Load restores a classifier saved with Save over ont. Differences between
// the saved statements and the imports closure of ont are replayed as
// changes, so the next Classify updates the restored hierarchy
// incrementally. If ont is nil, a new ontology holding the saved statements
// is created.
func Load(ctx context.Context, r io.Reader, ont *axiom.Ontology, cfg Config) (*Classifier, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: creating zstd decoder: %w", ErrIllegalConfiguration, err)
	}
	defer dec.Close()

	var snap snapshot
	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot: %w", ErrIllegalConfiguration, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, want %d", ErrIllegalConfiguration, snap.Version, snapshotVersion)
	}

	stmts := make([]axiom.Statement, len(snap.Statements))
	for i, s := range snap.Statements {
		st, err := axiom.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIllegalConfiguration, err)
		}
		stmts[i] = st
	}

	var tax *taxonomy.Taxonomy[axiom.IRI]
	if snap.Taxonomy != nil {
		if tax, err = restoreTaxonomy(snap.Taxonomy); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIllegalConfiguration, err)
		}
	}

	if err := cfg.Extractor.Restore(ctx, stmts); err != nil {
		return nil, err
	}

	if ont == nil {
		if ont, err = axiom.NewManager().CreateOntology("restored"); err != nil {
			return nil, err
		}
		ont.Add(stmts...)
	}

	c, err := newClassifier(ont, cfg)
	if err != nil {
		return nil, err
	}
	c.taxonomy = tax
	c.classified = snap.Classified && tax != nil
	c.realized = snap.Realized && c.classified
	c.stale = !c.classified

	additions, deletions := axiom.Diff(stmts, ont.ImportsClosure())
	changes := make([]axiom.Change, 0, len(additions)+len(deletions))
	for _, st := range additions {
		changes = append(changes, axiom.Change{Op: axiom.AddStatement, Ontology: ont, Statement: st})
	}
	for _, st := range deletions {
		changes = append(changes, axiom.Change{Op: axiom.RemoveStatement, Ontology: ont, Statement: st})
	}
	c.mu.Lock()
	c.accept(changes)
	c.mu.Unlock()

	c.log.Info("snapshot loaded",
		"statements", len(stmts),
		"classified", c.classified,
		"realized", c.realized,
		"additions", len(additions),
		"deletions", len(deletions))
	return c, nil
}

func restoreTaxonomy(s *taxonomySnapshot) (*taxonomy.Taxonomy[axiom.IRI], error) {
	if s.Top == "" || s.Bottom == "" || s.Top == s.Bottom {
		return nil, fmt.Errorf("taxonomy bounds %q and %q", s.Top, s.Bottom)
	}
	tax := taxonomy.New(s.Top, s.Bottom)
	for _, ns := range s.Nodes {
		if len(ns.Equivalents) == 0 {
			return nil, taxonomy.ErrEmptyNode
		}
		var n *taxonomy.Node[axiom.IRI]
		switch {
		case slices.Contains(ns.Equivalents, s.Top):
			if err := tax.AddEquivalents(s.Top, ns.Equivalents); err != nil {
				return nil, err
			}
			n = tax.Top()
		case slices.Contains(ns.Equivalents, s.Bottom):
			if err := tax.AddEquivalents(s.Bottom, ns.Equivalents); err != nil {
				return nil, err
			}
			n = tax.Bottom()
		default:
			var err error
			if n, err = tax.AddNode(ns.Equivalents, ns.Supers, nil, false); err != nil {
				return nil, err
			}
		}
		n.SetInstances(ns.Instances)
	}
	if err := tax.Validate(); err != nil {
		return nil, err
	}
	return tax, nil
}
