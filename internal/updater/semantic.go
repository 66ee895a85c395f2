package updater

import (
	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
)

// container returns the semantic node holding the plan items drawn inside
// the visual parent: the case plan model, or the definition of a stage or
// plan fragment item.
func container(parent *diagram.Element) *cmmn.Node {
	switch {
	case parent == nil:
		return nil
	case parent.IsCasePlanModel():
		return parent.Node
	case parent.IsItem():
		def := parent.Node.DefinitionRef
		if def != nil && def.Kind.IsPlanFragmentLike() {
			return def
		}
	}
	return nil
}

// fixTarget returns the planning table owner for a discretionary item
// drawn inside parent: the nearest stage definition or the case plan
// model. Plan fragments are skipped.
func fixTarget(parent *diagram.Element) *cmmn.Node {
	for p := parent; p != nil; p = p.Parent {
		switch {
		case p.IsCasePlanModel():
			return p.Node
		case p.IsItem() && p.DefinitionKind() == cmmn.KindPlanFragment:
			continue
		case p.IsItem() && p.DefinitionKind() == cmmn.KindStage:
			return p.Node.DefinitionRef
		}
		return nil
	}
	return nil
}

// owner returns the planning table owner of discretionary item shape s
// drawn inside parent. An incoming discretionary connection makes the
// source human task the owner.
func owner(s, parent *diagram.Element) *cmmn.Node {
	for _, conn := range s.IncomingDiscretionary() {
		if src := conn.Source; src != nil && src.IsHumanTaskItem() {
			return src.Node.DefinitionRef
		}
	}
	return fixTarget(parent)
}

// tableOwner returns the first ancestor of n that is not a planning table.
func tableOwner(n *cmmn.Node) *cmmn.Node {
	return n.Ancestor(func(p *cmmn.Node) bool { return p.Kind != cmmn.KindPlanningTable })
}

// inTableOf reports whether n sits in a planning table chain owned by o.
func inTableOf(n, o *cmmn.Node) bool {
	return n.Parent != nil && n.Parent.Kind == cmmn.KindPlanningTable && tableOwner(n) == o
}

// sentryParent returns where the sentry of a criterion attached to host
// belongs.
func sentryParent(host *diagram.Element) *cmmn.Node {
	if host == nil {
		return nil
	}
	if host.IsCasePlanModel() {
		return host.Node
	}
	return container(host.Parent)
}

// casePlanModelOf returns the case plan model shape enclosing e, or nil.
func casePlanModelOf(e *diagram.Element) *diagram.Element {
	for p := e; p != nil; p = p.Parent {
		if p.IsCasePlanModel() {
			return p
		}
	}
	return nil
}

// PlanningOwner returns the node whose planning table must hold the
// discretionary item drawn as s.
func PlanningOwner(s *diagram.Element) *cmmn.Node {
	return owner(s, s.Parent)
}
