// Package replace builds substitute semantic nodes: type changes of items,
// criteria and definitions, and the clones used to split shared
// definitions and sentries. Inputs are never mutated; callers rewire
// references through ordinary commands.
package replace

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
)

// ErrUnsupported is returned when no substitution exists between two kinds.
var ErrUnsupported = errors.New("unsupported replacement")

// IDs hands out fresh ids. *ids.Pool satisfies it.
type IDs interface {
	NextPrefixed(prefix string, owner any) string
}

// Target describes the node a replacement produces.
type Target struct {
	// Kind is an item kind, a criterion kind, or a plan item definition
	// kind for a definition type change.
	Kind cmmn.Kind
	// Collapsed requests a collapsed rendering of stage-like targets.
	Collapsed bool
}

// Result is the outcome of Replace.
type Result struct {
	// Node replaces the input node.
	Node *cmmn.Node
	// Definition is the definition Node references; it is new when the
	// definition type changed.
	Definition *cmmn.Node
	// NewDefinition reports whether Definition was created by Replace.
	NewDefinition bool
	Collapsed     bool
}

func newNode(kind cmmn.Kind, ids IDs) *cmmn.Node {
	n := cmmn.NewNode(kind, "")
	n.ID = ids.NextPrefixed(kind.Prefix(), n)
	return n
}

// Replace builds the substitute of node for target.
func Replace(node *cmmn.Node, target Target, ids IDs) (Result, error) {
	switch {
	case node.Kind.IsItem() && target.Kind.IsItem():
		n := cloneItem(node, target.Kind, ids)
		n.DefinitionRef = node.DefinitionRef
		return Result{Node: n, Definition: n.DefinitionRef, Collapsed: target.Collapsed && collapsible(n.DefinitionRef)}, nil

	case node.Kind.IsItem() && target.Kind.IsPlanItemDefinition():
		n := cloneItem(node, node.Kind, ids)
		old := node.DefinitionRef
		if old != nil && old.Kind == target.Kind {
			n.DefinitionRef = old
			return Result{Node: n, Definition: old, Collapsed: target.Collapsed && collapsible(old)}, nil
		}
		def := newNode(target.Kind, ids)
		if old != nil {
			def.Name = old.Name
			if old.Kind.CanBlock() && def.Kind.CanBlock() {
				def.IsBlocking = old.IsBlocking
			}
			if old.Kind.IsStageLike() && def.Kind.IsStageLike() {
				def.AutoComplete = old.AutoComplete
			}
			if ctrl := old.DefaultControl(); ctrl != nil && def.Kind.HasDefaultControl() {
				mustAdd(def, CloneControl(ctrl, ids))
			}
		}
		n.DefinitionRef = def
		return Result{Node: n, Definition: def, NewDefinition: true, Collapsed: target.Collapsed && collapsible(def)}, nil

	case node.Kind.IsCriterion() && target.Kind.IsCriterion():
		n := newNode(target.Kind, ids)
		n.Name = node.Name
		n.SentryRef = node.SentryRef
		return Result{Node: n}, nil
	}
	return Result{}, fmt.Errorf("%w: %s to %s", ErrUnsupported, node.Kind, target.Kind)
}

func collapsible(def *cmmn.Node) bool {
	return def != nil && (def.Kind == cmmn.KindStage || def.Kind == cmmn.KindPlanFragment)
}

func cloneItem(item *cmmn.Node, kind cmmn.Kind, ids IDs) *cmmn.Node {
	n := newNode(kind, ids)
	n.Name = item.Name
	if ctrl := item.ItemControl(); ctrl != nil {
		mustAdd(n, CloneControl(ctrl, ids))
	}
	return n
}

// CloneDefinition copies def's attributes and default control. Planning
// tables and contained items stay with the original.
func CloneDefinition(def *cmmn.Node, ids IDs) *cmmn.Node {
	n := newNode(def.Kind, ids)
	n.Name = def.Name
	n.IsBlocking = def.IsBlocking
	n.AutoComplete = def.AutoComplete
	if ctrl := def.DefaultControl(); ctrl != nil {
		mustAdd(n, CloneControl(ctrl, ids))
	}
	return n
}

// CloneControl deep-copies a plan item control with its rules and their
// conditions.
func CloneControl(ctrl *cmmn.Node, ids IDs) *cmmn.Node {
	if ctrl == nil {
		return nil
	}
	n := newNode(ctrl.Kind, ids)
	n.Name = ctrl.Name
	n.Condition = ctrl.Condition.Clone()
	for _, slot := range []cmmn.Collection{cmmn.CollRepetitionRule, cmmn.CollRequiredRule, cmmn.CollManualActivationRule} {
		if rule := ctrl.Child(slot); rule != nil {
			r := newNode(rule.Kind, ids)
			r.Name = rule.Name
			r.Condition = rule.Condition.Clone()
			mustAdd(n, r)
		}
	}
	return n
}

// CloneSentry copies sentry's attributes and those on-parts keep accepts.
// A nil keep copies every on-part.
func CloneSentry(sentry *cmmn.Node, ids IDs, keep func(onPart *cmmn.Node) bool) *cmmn.Node {
	n := newNode(cmmn.KindSentry, ids)
	n.Name = sentry.Name
	n.IfPart = sentry.IfPart.Clone()
	for _, op := range sentry.Children(cmmn.CollOnParts) {
		if keep != nil && !keep(op) {
			continue
		}
		mustAdd(n, CloneOnPart(op, ids))
	}
	return n
}

// CloneOnPart copies an on-part, keeping its source reference.
func CloneOnPart(op *cmmn.Node, ids IDs) *cmmn.Node {
	n := newNode(op.Kind, ids)
	n.Name = op.Name
	n.StandardEvent = op.StandardEvent
	n.SourceRef = op.SourceRef
	return n
}

// mustAdd appends child to a freshly built parent. The kinds involved
// always have a containment slot.
func mustAdd(parent, child *cmmn.Node) {
	if err := parent.Add(child, -1); err != nil {
		panic(fmt.Sprintf("replace: %v", err))
	}
}
