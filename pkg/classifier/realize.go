package classifier

import (
	"context"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/metrics"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
)

// Realize caches the most specific types of every individual on the
// taxonomy nodes, classifying first if needed.
func (c *Classifier) Realize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.realize(ctx)
}

func (c *Classifier) realize(ctx context.Context) error {
	if err := c.classify(ctx); err != nil {
		return err
	}
	if c.realized {
		return nil
	}
	timer := c.timers.Start(metrics.Realize)
	defer timer.Stop()

	c.base.Flush()
	c.taxonomy.ClearInstances()
	individuals := c.base.Individuals()
	if len(individuals) > 0 {
		visited := make(map[*taxonomy.Node[axiom.IRI]][]axiom.IRI)
		if _, err := c.realizeByConcept(ctx, c.taxonomy.Top(), individuals, visited); err != nil {
			c.taxonomy.ClearInstances()
			return reasoner.Convert(err)
		}
	}
	c.realized = true
	c.log.Debug("realized", "individuals", len(individuals))
	return nil
}

// realizeByConcept returns the members of candidates that are instances of
// node, and caches on node those that are instances of none of its subs.
func (c *Classifier) realizeByConcept(ctx context.Context, node *taxonomy.Node[axiom.IRI], candidates []axiom.IRI, visited map[*taxonomy.Node[axiom.IRI]][]axiom.IRI) ([]axiom.IRI, error) {
	if node == c.taxonomy.Bottom() {
		return nil, nil
	}
	if instances, ok := visited[node]; ok {
		return instances, nil
	}
	if err := reasoner.CheckContext(ctx); err != nil {
		return nil, err
	}

	instances, err := c.base.Retrieve(ctx, queryIRI(c.taxonomy, node), candidates)
	if err != nil {
		return nil, err
	}
	visited[node] = instances
	if len(instances) == 0 {
		return nil, nil
	}

	specific := make(map[axiom.IRI]bool, len(instances))
	for _, ind := range instances {
		specific[ind] = true
	}
	for _, sub := range node.Subs() {
		subInstances, err := c.realizeByConcept(ctx, sub, instances, visited)
		if err != nil {
			return nil, err
		}
		for _, ind := range subInstances {
			delete(specific, ind)
		}
	}
	if len(specific) > 0 {
		out := make([]axiom.IRI, 0, len(specific))
		for ind := range specific {
			out = append(out, ind)
		}
		node.SetInstances(out)
	}
	return instances, nil
}

// allInstances returns the cached instances of node and of every node
// below it.
func (c *Classifier) allInstances(node *taxonomy.Node[axiom.IRI]) []axiom.IRI {
	seen := make(map[axiom.IRI]bool)
	collect := func(n *taxonomy.Node[axiom.IRI]) {
		ins, _ := n.Instances()
		for _, ind := range ins {
			seen[ind] = true
		}
	}
	collect(node)
	for _, n := range c.taxonomy.Subs(node, false) {
		collect(n)
	}
	out := make([]axiom.IRI, 0, len(seen))
	for ind := range seen {
		out = append(out, ind)
	}
	return axiom.SortIRIs(out)
}

// types returns the nodes whose cached instances contain ind and, unless
// direct, all of their ancestors.
func (c *Classifier) types(ind axiom.IRI, direct bool) []*taxonomy.Node[axiom.IRI] {
	found := make(map[*taxonomy.Node[axiom.IRI]]bool)
	for _, n := range c.taxonomy.Nodes() {
		ins, ok := n.Instances()
		if !ok {
			continue
		}
		for _, x := range ins {
			if x == ind {
				found[n] = true
				break
			}
		}
	}
	if !direct {
		var below []*taxonomy.Node[axiom.IRI]
		for n := range found {
			below = append(below, n)
		}
		for _, n := range below {
			for _, s := range c.taxonomy.Supers(n, false) {
				found[s] = true
			}
		}
	}
	out := make([]*taxonomy.Node[axiom.IRI], 0, len(found))
	for _, n := range c.taxonomy.Nodes() {
		if found[n] {
			out = append(out, n)
		}
	}
	return out
}
