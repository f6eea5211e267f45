// Package classifier keeps the class hierarchy of a knowledge base current
// under incremental edits.
//
// A Classifier wraps a base reasoner and a module extractor. Every change to
// the ontology's imports closure is forwarded to the extractor; Classify then
// picks the cheapest way to bring the hierarchy up to date:
//
//	no pending change             nothing to do
//	pending assertions only       module bookkeeping, hierarchy untouched
//	extractor.CanUpdate()         reclassify the affected modules and splice
//	otherwise                     full classification
//
// A full classification runs two units, classifying the whole knowledge base
// and extracting every module, concurrently when MultiThreaded is set.
// Incremental updates classify the union of the affected modules with a
// private reasoner from the configured factory and splice the result into
// the previous hierarchy. Only a successful classification replaces the
// hierarchy; a failed one leaves the previous hierarchy in place, reports
// the classifier as unclassified and forces the next classification to
// start over.
//
// Example Usage:
//
//	cfg := classifier.DefaultConfig()
//	cfg.Factory = told.Factory()
//	c, err := classifier.New(ont, cfg)
//	if err != nil {
//		return err
//	}
//	defer c.Dispose()
//
//	supers, err := c.SuperClasses(ctx, axiom.Class("A"), false)
//	ont.Add(axiom.SubClass(axiom.Class("A"), axiom.Class("D")))
//	supers, err = c.SuperClasses(ctx, axiom.Class("A"), true) // incremental
//
// Thread Safety:
//
//	All methods are safe for concurrent use; they are serialized by one
//	mutex. Editing the ontology while Classify runs on another goroutine is
//	not supported.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/cache"
	"github.com/ThomasFarrenkopf/pellet/pkg/metrics"
	"github.com/ThomasFarrenkopf/pellet/pkg/modularity"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
)

// Classifier maintains the taxonomy of one ontology.
type Classifier struct {
	mu sync.Mutex

	cfg         Config
	log         *slog.Logger
	timers      *metrics.Timers
	ontology    *axiom.Ontology
	factory     reasoner.Factory
	base        reasoner.Reasoner
	extractor   modularity.Extractor
	entailments *cache.EntailmentCache

	taxonomy   *taxonomy.Taxonomy[axiom.IRI]
	classified bool
	realized   bool
	// stale is set by a failed classification: the extractor may have
	// consumed changes the taxonomy does not reflect.
	stale    bool
	disposed bool

	// complements maps anonymous expressions to the identifier of their
	// hidden complement node in the current taxonomy.
	complements map[string]axiom.IRI
	newID       func() string

	stopListening func()
}

// New creates a classifier over the imports closure of ont. Nothing is
// classified until the first Classify or query.
func New(ont *axiom.Ontology, cfg Config) (*Classifier, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if ont == nil {
		return nil, fmt.Errorf("%w: no ontology", ErrIllegalConfiguration)
	}
	for _, st := range ont.ClosureStatements() {
		cfg.Extractor.AddStatement(st)
	}
	return newClassifier(ont, cfg)
}

func newClassifier(ont *axiom.Ontology, cfg Config) (*Classifier, error) {
	if cfg.ListenChanges && ont.Manager() == nil {
		return nil, fmt.Errorf("%w: %w", ErrIllegalConfiguration, axiom.ErrOntologyDetached)
	}
	base, err := cfg.Factory.New(ont)
	if err != nil {
		return nil, fmt.Errorf("creating base reasoner: %w", err)
	}
	c := &Classifier{
		cfg:         cfg,
		log:         cfg.Logger.With("component", "classifier", "ontology", ont.ID()),
		timers:      cfg.Timers,
		ontology:    ont,
		factory:     cfg.Factory,
		base:        base,
		extractor:   cfg.Extractor,
		entailments: cache.NewEntailmentCache(cfg.EntailmentCacheSize, cfg.EntailmentCacheTTL),
		complements: make(map[string]axiom.IRI),
		newID:       uuid.NewString,
	}
	if cfg.ListenChanges {
		c.stopListening = ont.Manager().AddListener(c.OntologiesChanged)
	}
	return c, nil
}

// Classify brings the taxonomy up to date with the ontology.
func (c *Classifier) Classify(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classify(ctx)
}

func (c *Classifier) classify(ctx context.Context) error {
	if c.disposed {
		return ErrDisposed
	}
	if c.classified {
		if !c.extractor.IsChanged() {
			return nil
		}
		if !c.extractor.IsClassificationNeeded(c.base.Expressivity()) {
			if _, err := c.extractor.ApplyChanges(ctx); err != nil {
				c.fail(err)
				return reasoner.Convert(err)
			}
			c.entailments.Clear()
			c.log.Debug("pending changes do not affect the class hierarchy")
			c.timers.Classified(metrics.StrategyBookkeeping, c.taxonomy.Len())
			return nil
		}
	}

	start := time.Now()
	strategy := metrics.StrategyFull
	var (
		tax *taxonomy.Taxonomy[axiom.IRI]
		err error
	)
	if c.taxonomy != nil && !c.stale && c.extractor.CanUpdate() {
		strategy = metrics.StrategyIncremental
		tax, err = c.incrementalClassify(ctx)
	} else {
		tax, err = c.regularClassify(ctx)
	}
	if err != nil {
		c.fail(err)
		c.log.Warn("classification failed", "strategy", strategy, "error", err)
		return reasoner.Convert(err)
	}

	tax.ClearInstances()
	c.taxonomy = tax
	c.classified = true
	c.realized = false
	c.stale = false
	c.complements = make(map[string]axiom.IRI)
	if cs := c.entailments.Stats(); cs.Size > 0 {
		c.log.Debug("entailment cache reset", "answers", cs.Size, "hit_rate", cs.HitRate())
	}
	c.entailments.Clear()
	c.timers.Classified(strategy, tax.Len())
	c.log.Info("classified",
		"strategy", strategy,
		"nodes", tax.Len(),
		"elapsed", time.Since(start))
	return nil
}

// fail records a failed classification. A broken invariant discards the
// hierarchy.
func (c *Classifier) fail(err error) {
	c.classified = false
	c.realized = false
	c.stale = true
	if errors.Is(err, ErrInvariantViolation) {
		c.taxonomy = nil
	}
}

// regularClassify classifies the whole knowledge base with the shared
// reasoner and extracts every module.
func (c *Classifier) regularClassify(ctx context.Context) (*taxonomy.Taxonomy[axiom.IRI], error) {
	timer := c.timers.Start(metrics.RegularClassify)
	defer timer.Stop()

	var tax *taxonomy.Taxonomy[axiom.IRI]
	hierarchy := func(ctx context.Context) error {
		t := c.timers.Start(metrics.ReasonerClassify)
		c.base.Flush()
		err := c.base.Classify(ctx)
		t.Stop()
		if err != nil {
			return err
		}
		t = c.timers.Start(metrics.BuildClassHierarchy)
		defer t.Stop()
		built, err := BuildHierarchy(ctx, c.base)
		if err != nil {
			return err
		}
		tax = built
		return nil
	}
	modules := func(ctx context.Context) error {
		return c.extractor.ExtractModules(ctx)
	}

	if c.cfg.MultiThreaded {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return hierarchy(gctx) })
		g.Go(func() error { return modules(gctx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if err := hierarchy(ctx); err != nil {
			return nil, err
		}
		if err := modules(ctx); err != nil {
			return nil, err
		}
	}
	c.debugTree(ctx, "regular taxonomy", tax)
	return tax, nil
}

// IsClassified reports whether the taxonomy reflects the ontology. Pending
// changes that cannot affect the hierarchy do not count.
func (c *Classifier) IsClassified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClassified()
}

func (c *Classifier) isClassified() bool {
	if !c.classified || c.disposed {
		return false
	}
	return !c.extractor.IsChanged() || !c.extractor.IsClassificationNeeded(c.base.Expressivity())
}

// IsRealized reports whether the most specific types of every individual
// are cached.
func (c *Classifier) IsRealized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClassified() && c.realized
}

// Flush makes buffered ontology changes visible to the base reasoner.
func (c *Classifier) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.disposed {
		c.base.Flush()
	}
}

// Ontology returns the root ontology.
func (c *Classifier) Ontology() *axiom.Ontology { return c.ontology }

// Timers returns the phase timers.
func (c *Classifier) Timers() *metrics.Timers { return c.timers }

// Taxonomy returns a copy of the current taxonomy, or nil before the first
// classification.
func (c *Classifier) Taxonomy() *taxonomy.Taxonomy[axiom.IRI] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.taxonomy == nil {
		return nil
	}
	return c.taxonomy.Clone()
}

// Copy returns an independent classifier over a fresh copy of the root
// ontology, registered with the same manager. The copy has the same
// hierarchy and is not realized.
func (c *Classifier) Copy() (*Classifier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	m := c.ontology.Manager()
	if m == nil {
		return nil, axiom.ErrOntologyDetached
	}
	ont, err := m.CopyOntology(c.ontology, c.ontology.ID()+"-copy-"+c.newID())
	if err != nil {
		return nil, err
	}
	cfg := c.cfg
	cfg.Extractor = c.extractor.Copy()
	cfg.ListenChanges = true
	cp, err := newClassifier(ont, cfg)
	if err != nil {
		m.Remove(ont)
		return nil, err
	}
	cp.classified = c.classified
	cp.stale = c.stale
	if c.classified && c.taxonomy != nil {
		tax, err := BuildHierarchy(context.Background(), taxonomySource{tax: c.taxonomy})
		if err != nil {
			cp.Dispose()
			return nil, err
		}
		cp.taxonomy = tax
	}
	return cp, nil
}

// Dispose stops listening for changes and releases the base reasoner.
func (c *Classifier) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	if c.stopListening != nil {
		c.stopListening()
	}
	c.base.Dispose()
}
