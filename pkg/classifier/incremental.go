package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/metrics"
	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
)

// incrementalClassify reclassifies only the modules touched by the pending
// changes and splices the result into the current hierarchy. The current
// hierarchy is not modified.
func (c *Classifier) incrementalClassify(ctx context.Context) (*taxonomy.Taxonomy[axiom.IRI], error) {
	timer := c.timers.Start(metrics.IncrementalClassify)
	defer timer.Stop()

	effects, err := c.extractor.ApplyChanges(ctx)
	if err != nil {
		return nil, err
	}
	var classes []axiom.Entity
	affected := make(map[axiom.IRI]bool)
	for _, e := range effects {
		if e.Type == axiom.ClassEntity {
			classes = append(classes, e)
			affected[e.IRI] = true
		}
	}
	module := c.extractor.ModuleFromSignature(classes)
	c.log.Debug("incremental classification",
		"affected_entities", len(effects),
		"affected_classes", len(classes),
		"module_statements", len(module))

	sub, err := c.classifyModule(ctx, module)
	if err != nil {
		return nil, err
	}
	c.debugTree(ctx, "classified module", sub)

	updated, err := updateClassHierarchy(c.taxonomy, sub, affected)
	if err != nil {
		return nil, err
	}
	c.debugTree(ctx, "updated taxonomy", updated)
	return updated, nil
}

// classifyModule classifies module statements with a private reasoner and
// returns their hierarchy.
func (c *Classifier) classifyModule(ctx context.Context, module []axiom.Statement) (*taxonomy.Taxonomy[axiom.IRI], error) {
	ont, err := axiom.NewManager().CreateOntology("module")
	if err != nil {
		return nil, err
	}
	ont.Add(module...)

	r, err := c.factory.New(ont)
	if err != nil {
		return nil, fmt.Errorf("creating module reasoner: %w", err)
	}
	defer r.Dispose()

	if err := r.Classify(ctx); err != nil {
		return nil, err
	}
	return BuildHierarchy(ctx, r)
}

// updateClassHierarchy completes sub, the hierarchy of the affected classes,
// with every class of old that was not affected, placed under its old direct
// supers. Affected classes missing from sub were removed from the knowledge
// base and are dropped.
func updateClassHierarchy(old, sub *taxonomy.Taxonomy[axiom.IRI], affected map[axiom.IRI]bool) (*taxonomy.Taxonomy[axiom.IRI], error) {
	for _, x := range sub.Classes() {
		if x != axiom.Thing && x != axiom.Nothing && !affected[x] {
			return nil, fmt.Errorf("%w: unaffected class %s in reclassified module", ErrInvariantViolation, x)
		}
	}
	removed := make(map[axiom.IRI]bool)
	for x := range affected {
		if !sub.Contains(x) {
			removed[x] = true
		}
	}
	missing := func(members []axiom.IRI) []axiom.IRI {
		var out []axiom.IRI
		for _, x := range members {
			if !removed[x] && !sub.Contains(x) {
				out = append(out, x)
			}
		}
		return out
	}

	for _, n := range old.TopologicalSort() {
		if n == old.Top() || n == old.Bottom() {
			continue
		}
		members := missing(n.Equivalents())
		if len(members) == 0 {
			continue
		}
		if _, err := sub.AddNode(members, nil, nil, false); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
		}
		var supers []axiom.IRI
		for _, s := range n.Supers() {
			for _, x := range s.Equivalents() {
				if !removed[x] && sub.Contains(x) {
					supers = append(supers, x)
					break
				}
			}
		}
		if err := sub.AddSupers(members[0], supers); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
		}
	}

	if err := sub.AddEquivalents(axiom.Thing, missing(old.Top().Equivalents())); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	if err := sub.AddEquivalents(axiom.Nothing, missing(old.Bottom().Equivalents())); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	return sub, nil
}

func (c *Classifier) debugTree(ctx context.Context, msg string, tax *taxonomy.Taxonomy[axiom.IRI]) {
	if !c.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	var sb strings.Builder
	if err := taxonomy.Print(&sb, tax); err == nil {
		c.log.Debug(msg, "tree", sb.String())
	}
}
