// Package axiom defines the statement model consumed by the classifier:
// class expressions, statements (axioms), ontologies and the change feed.
//
// Statements are written in a small functional syntax, one per line:
//
//	# comments start with '#'
//	SubClassOf(A B)
//	EquivalentClasses(Person Human)
//	DisjointClasses(Cat Dog)
//	SubClassOf(Cat ObjectComplementOf(Plant))
//	ClassAssertion(Cat tom)
//	SubObjectPropertyOf(hasMother hasParent)
//
// Bare tokens are taken as IRIs verbatim, <...> brackets allow arbitrary
// IRIs, and owl:Thing / owl:Nothing name the distinguished TOP and BOTTOM
// classes.
//
// Ontologies are owned by a Manager. Every effective addition or removal is
// delivered to the manager's listeners as a Change, in order:
//
//	m := axiom.NewManager()
//	ont, _ := m.CreateOntology("kb")
//	remove := m.AddListener(func(changes []axiom.Change) {
//		for _, c := range changes {
//			fmt.Println(c.Op, c.Statement)
//		}
//	})
//	defer remove()
//
//	ont.Add(axiom.SubClass(axiom.Class("A"), axiom.Class("B")))
package axiom
