package classifier

import "github.com/ThomasFarrenkopf/pellet/pkg/axiom"

// OntologiesChanged accepts changes from the change feed. Changes to
// ontologies outside the root's imports closure are ignored, and so is
// everything once the root ontology has left its manager. Every accepted
// change invalidates realization.
func (c *Classifier) OntologiesChanged(changes []axiom.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	m := c.ontology.Manager()
	if m == nil || !m.Contains(c.ontology) {
		return
	}
	closure := make(map[*axiom.Ontology]bool)
	for _, o := range c.ontology.ImportsClosure() {
		closure[o] = true
	}
	var accepted []axiom.Change
	for _, ch := range changes {
		if closure[ch.Ontology] {
			accepted = append(accepted, ch)
		}
	}
	c.accept(accepted)
}

// accept forwards changes to the extractor.
func (c *Classifier) accept(changes []axiom.Change) {
	for _, ch := range changes {
		c.resetRealization()
		switch ch.Op {
		case axiom.AddStatement:
			c.extractor.AddStatement(ch.Statement)
		case axiom.RemoveStatement:
			c.extractor.DeleteStatement(ch.Statement)
		}
	}
}

func (c *Classifier) resetRealization() {
	if c.realized && c.taxonomy != nil {
		c.taxonomy.ClearInstances()
	}
	c.realized = false
}
