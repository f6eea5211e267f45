package axiom

// ChangeOp is the direction of a change.
type ChangeOp int

const (
	AddStatement ChangeOp = iota + 1
	RemoveStatement
)

func (op ChangeOp) String() string {
	switch op {
	case AddStatement:
		return "add"
	case RemoveStatement:
		return "remove"
	default:
		return "unknown"
	}
}

// Change is one effective edit of an ontology.
type Change struct {
	Op        ChangeOp
	Ontology  *Ontology
	Statement Statement
}

// Listener receives the changes of one Add, Remove or Apply call, in order.
type Listener func(changes []Change)

// Diff compares a previously known statement set with the union of the
// statements of onts. Additions are statements present in onts but not in
// known; deletions the reverse. Both are returned in canonical order.
func Diff(known []Statement, onts []*Ontology) (additions, deletions []Statement) {
	current := make(map[string]Statement)
	for _, o := range onts {
		for _, st := range o.Statements() {
			current[st.String()] = st
		}
	}
	old := make(map[string]struct{}, len(known))
	for _, st := range known {
		key := st.String()
		old[key] = struct{}{}
		if _, ok := current[key]; !ok {
			deletions = append(deletions, st)
		}
	}
	for key, st := range current {
		if _, ok := old[key]; !ok {
			additions = append(additions, st)
		}
	}
	sortStatements(additions)
	sortStatements(deletions)
	return additions, deletions
}
