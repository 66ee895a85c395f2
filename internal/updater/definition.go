package updater

import (
	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
	"github.com/dusk-indust/cmmnedit/internal/replace"
)

// definitionOf returns the shared definition n references, if n is an
// item or case file item.
func definitionOf(n *cmmn.Node) *cmmn.Node {
	if n == nil || (!n.Kind.IsItem() && n.Kind != cmmn.KindCaseFileItem) {
		return nil
	}
	return n.DefinitionRef
}

// scopeChain lists the nodes that may own a definition used by item shape
// s, nearest first: the definitions of enclosing stage items, then the
// case plan model. Plan fragments own no definitions and are skipped.
func scopeChain(s *diagram.Element) []*cmmn.Node {
	var out []*cmmn.Node
	for p := s.Parent; p != nil; p = p.Parent {
		if p.IsCasePlanModel() {
			return append(out, p.Node)
		}
		if p.IsItem() && p.DefinitionKind() == cmmn.KindStage {
			out = append(out, p.Node.DefinitionRef)
		}
	}
	return out
}

// requiredParent returns the nearest scope shared by every shape, or the
// outermost scope of the first shape when they share none.
func requiredParent(shapes []*diagram.Element) *cmmn.Node {
	if len(shapes) == 0 {
		return nil
	}
	chains := make([][]*cmmn.Node, len(shapes))
	for i, s := range shapes {
		chains[i] = scopeChain(s)
	}
	for _, cand := range chains[0] {
		shared := true
		for _, chain := range chains[1:] {
			if !containsNode(chain, cand) {
				shared = false
				break
			}
		}
		if shared {
			return cand
		}
	}
	if first := chains[0]; len(first) > 0 {
		return first[len(first)-1]
	}
	return nil
}

func containsNode(list []*cmmn.Node, n *cmmn.Node) bool {
	for _, cur := range list {
		if cur == n {
			return true
		}
	}
	return false
}

// referencingShapes splits the shapes of def's referencers by membership
// in set. A nil set puts every shape in in.
func (u *Updaters) referencingShapes(def *cmmn.Node, set map[*diagram.Element]bool) (in, out []*diagram.Element) {
	for _, ref := range u.env.Registry.GetReferences(def) {
		s := u.env.ShapeOf(ref)
		if s == nil {
			continue
		}
		if set == nil || set[s] {
			in = append(in, s)
		} else {
			out = append(out, s)
		}
	}
	return in, out
}

// updateDefinitions keeps every definition in the innermost scope visible
// to all of its referencers. After a move it splits definitions whose
// referencers no longer share a scope.
func (u *Updaters) updateDefinitions(e *command.Event) error {
	if u.splitting {
		return nil
	}
	switch c := e.Context.(type) {
	case *modeling.CreateShapeContext:
		return u.placeDefinition(definitionOf(c.Shape.Node))

	case *modeling.ReplaceShapeContext:
		if c.NewShape == nil {
			return nil
		}
		return u.placeDefinition(definitionOf(c.NewShape.Node))

	case *modeling.DeleteShapeContext:
		def := definitionOf(c.Shape.Node)
		if def == nil {
			return nil
		}
		if err := u.detachUnreferenced(def); err != nil {
			return err
		}
		if def.Parent == nil {
			return nil
		}
		return u.placeDefinition(def)

	case *modeling.UpdatePropertiesContext:
		if c.Properties.DefinitionRef == nil {
			return nil
		}
		if c.Element != nil {
			if err := u.rehomeTargets(c.Element); err != nil {
				return err
			}
		}
		if old := c.OldDefinition(); old != nil && old != c.Node.DefinitionRef {
			if err := u.detachUnreferenced(old); err != nil {
				return err
			}
			if old.Parent != nil {
				if err := u.placeDefinition(old); err != nil {
					return err
				}
			}
		}
		return u.placeDefinition(c.Node.DefinitionRef)

	case *modeling.MoveElementsContext:
		return u.splitDefinitions(affected(c.Closure()))
	}
	return nil
}

// placeDefinition moves def to the scope its referencers require.
func (u *Updaters) placeDefinition(def *cmmn.Node) error {
	if def == nil {
		return nil
	}
	if def.Kind == cmmn.KindCaseFileItemDefinition {
		return u.setParent(def, u.env.Doc.Definitions)
	}
	shapes, _ := u.referencingShapes(def, nil)
	target := requiredParent(shapes)
	if target == nil {
		return nil
	}
	return u.setParent(def, target)
}

// coversAll reports whether scope lies on the scope chain of every shape.
func coversAll(scope *cmmn.Node, shapes []*diagram.Element) bool {
	if scope == nil {
		return false
	}
	for _, s := range shapes {
		if !containsNode(scopeChain(s), scope) {
			return false
		}
	}
	return true
}

// splitDefinitions revisits the definitions used inside closure, parents
// first.
func (u *Updaters) splitDefinitions(closure []*diagram.Element) error {
	inClosure := elementSet(closure)
	var defs []*cmmn.Node
	seen := make(map[*cmmn.Node]bool)
	for _, s := range closure {
		def := definitionOf(s.Node)
		if def == nil || seen[def] || def.Kind == cmmn.KindCaseFileItemDefinition {
			continue
		}
		seen[def] = true
		defs = append(defs, def)
	}

	for _, def := range defs {
		moved, remaining := u.referencingShapes(def, inClosure)
		if len(moved) == 0 {
			continue
		}
		if len(remaining) > 0 {
			movedScope, remainingScope := requiredParent(moved), requiredParent(remaining)
			if !coversAll(movedScope, remaining) && !coversAll(remainingScope, moved) {
				if err := u.splitDefinition(def, moved, movedScope); err != nil {
					return err
				}
				if err := u.placeDefinition(def); err != nil {
					return err
				}
				continue
			}
		}
		if err := u.placeDefinition(def); err != nil {
			return err
		}
	}
	return nil
}

// splitDefinition gives the moved referencers of def a clone of their own
// placed in scope.
func (u *Updaters) splitDefinition(def *cmmn.Node, moved []*diagram.Element, scope *cmmn.Node) error {
	clone := replace.CloneDefinition(def, u.env.IDs)
	u.logger.Debug("splitting definition",
		zap.String("definition", def.ID), zap.String("clone", clone.ID), zap.Int("moved", len(moved)))

	err := u.suspend(func() error {
		if err := u.setParent(clone, scope); err != nil {
			return err
		}
		for _, s := range moved {
			if err := u.run(modeling.CmdUpdateProperties, &modeling.UpdatePropertiesContext{
				Node:       s.Node,
				Element:    s,
				Properties: modeling.Properties{DefinitionRef: clone},
			}); err != nil {
				return err
			}
		}
		for _, s := range moved {
			switch def.Kind {
			case cmmn.KindStage:
				if err := u.rehomeChildren(s, def, clone); err != nil {
					return err
				}
			case cmmn.KindHumanTask:
				if err := u.rehomeTargets(s); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordSplit("definition")
	return nil
}

// rehomeChildren moves the items drawn inside stage shape s from the old
// stage definition into its clone.
func (u *Updaters) rehomeChildren(s *diagram.Element, from, to *cmmn.Node) error {
	for _, ch := range s.Children {
		if !ch.IsItem() {
			continue
		}
		n := ch.Node
		switch n.Kind {
		case cmmn.KindPlanItem:
			if n.Parent == from {
				if err := u.setParent(n, to); err != nil {
					return err
				}
			}
		case cmmn.KindDiscretionaryItem:
			if tableOwner(n) != from {
				continue
			}
			table, err := u.ensureTable(to)
			if err != nil {
				return err
			}
			if err := u.setParent(n, table); err != nil {
				return err
			}
		}
	}
	return nil
}

// DefinitionScope returns the node def must be placed in: the document's
// definitions for case file item definitions, otherwise the nearest scope
// shared by the shapes referencing def. It returns nil when no referencer
// is drawn.
func DefinitionScope(env *modeling.Env, def *cmmn.Node) *cmmn.Node {
	if def.Kind == cmmn.KindCaseFileItemDefinition {
		return env.Doc.Definitions
	}
	var shapes []*diagram.Element
	for _, ref := range env.Registry.GetReferences(def) {
		if s := env.ShapeOf(ref); s != nil {
			shapes = append(shapes, s)
		}
	}
	return requiredParent(shapes)
}
