package updater

import "github.com/dusk-indust/cmmnedit/internal/diagram"

// affected returns the shapes a move of shapes drags along: the shapes
// themselves, their descendants and attachers, and the discretionary items
// planned by moved human tasks, transitively. Parents come before their
// children.
func affected(shapes []*diagram.Element) []*diagram.Element {
	var out []*diagram.Element
	seen := make(map[*diagram.Element]bool)
	queue := append([]*diagram.Element(nil), shapes...)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if s == nil || !s.IsShape() || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		for _, c := range s.Children {
			queue = append(queue, c)
		}
		queue = append(queue, s.Attachers...)
		if s.IsHumanTaskItem() {
			for _, conn := range s.OutgoingDiscretionary() {
				queue = append(queue, conn.Target)
			}
		}
	}
	return out
}

func elementSet(elements []*diagram.Element) map[*diagram.Element]bool {
	set := make(map[*diagram.Element]bool, len(elements))
	for _, e := range elements {
		set[e] = true
	}
	return set
}
