package editor

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/updater"
)

// ErrInconsistent wraps every failure reported by Verify.
var ErrInconsistent = errors.New("document inconsistent")

// Verify checks the invariants the updaters maintain: containment
// symmetry, a registry holding exactly the attached nodes, reference
// counts matching the tree, no planning table without items, definitions
// placed in the scope their referencers share, and discretionary items
// planned by the owner the diagram implies.
func (s *Session) Verify() error {
	defs := s.env.Doc.Definitions
	reg := s.env.Registry
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...))
	}

	if err := cmmn.CheckContainment(defs); err != nil {
		fail("%v", err)
	}

	attached := 0
	counts := make(map[*cmmn.Node]int)
	var referenced []*cmmn.Node
	defs.Walk(func(n *cmmn.Node) bool {
		attached++
		if reg.Get(n.ID) != n {
			fail("%s is attached but not registered", n.ID)
		}
		if ref := n.Referenced(); ref != nil {
			if counts[ref] == 0 {
				referenced = append(referenced, ref)
			}
			counts[ref]++
		}
		if n.Kind == cmmn.KindPlanningTable && len(n.Children(cmmn.CollTableItems)) == 0 {
			fail("planning table %s has no table items", n.ID)
		}
		return true
	})
	if reg.Len() != attached {
		fail("registry holds %d nodes, document %d", reg.Len(), attached)
	}
	for _, ref := range referenced {
		if got, want := len(reg.GetReferences(ref)), counts[ref]; got != want {
			fail("%s has %d registered referencers, document %d", ref.ID, got, want)
		}
		if !s.env.Attached(ref) {
			fail("%s is referenced but detached", ref.ID)
		}
		if !ref.Kind.IsPlanItemDefinition() && ref.Kind != cmmn.KindCaseFileItemDefinition {
			continue
		}
		if scope := updater.DefinitionScope(s.env, ref); scope != nil && ref.Parent != scope {
			fail("definition %s is placed in %s, expected %s", ref.ID, parentID(ref), scope.ID)
		}
	}

	for _, e := range s.env.Canvas.Filter(func(e *diagram.Element) bool { return e.Is(cmmn.KindDiscretionaryItem) }) {
		o := updater.PlanningOwner(e)
		if o == nil {
			continue
		}
		n := e.Node
		if n.Parent == nil || n.Parent.Kind != cmmn.KindPlanningTable {
			fail("discretionary item %s is not in a planning table", n.ID)
			continue
		}
		if got := n.Ancestor(func(p *cmmn.Node) bool { return p.Kind != cmmn.KindPlanningTable }); got != o {
			fail("discretionary item %s is planned by %s, expected %s", n.ID, nodeID(got), o.ID)
		}
	}
	return errors.Join(errs...)
}
