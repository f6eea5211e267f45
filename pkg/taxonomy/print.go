package taxonomy

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"strings"
)

// Print writes the taxonomy as an indented tree starting at TOP. A node
// reached a second time is printed once more, marked with "..." and not
// expanded. BOTTOM is printed last, and only when it has members besides its
// name. Cached instances follow their node in braces.
func Print[T cmp.Ordered](w io.Writer, t *Taxonomy[T]) error {
	bw := bufio.NewWriter(w)
	printed := make(map[*Node[T]]bool)

	var walk func(n *Node[T], depth int)
	walk = func(n *Node[T], depth int) {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(bw, "%s%s", indent, formatMembers(n.equivalents))
		if ins, ok := n.Instances(); ok {
			fmt.Fprintf(bw, " {%s}", formatMembers(ins))
		}
		if printed[n] {
			fmt.Fprintln(bw, " ...")
			return
		}
		fmt.Fprintln(bw)
		printed[n] = true
		for _, s := range n.subs {
			if s != t.bottom {
				walk(s, depth+1)
			}
		}
	}
	walk(t.top, 0)
	if len(t.bottom.equivalents) > 1 {
		fmt.Fprintf(bw, "%s\n", formatMembers(t.bottom.equivalents))
	}
	return bw.Flush()
}

func formatMembers[T cmp.Ordered](xs []T) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, " = ")
}
