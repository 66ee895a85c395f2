package cmmn

import (
	"errors"
	"fmt"
)

// Collection names a containment slot of a semantic node.
type Collection int

const (
	CollNone Collection = iota
	CollCases
	CollCaseFileItemDefinitions
	CollArtifacts
	CollCasePlanModel
	CollCaseFileModel
	CollCaseFileItems
	CollPlanItems
	CollSentries
	CollPlanItemDefinitions
	CollPlanningTable
	CollTableItems
	CollApplicabilityRules
	CollEntryCriteria
	CollExitCriteria
	CollOnParts
	CollItemControl
	CollDefaultControl
	CollRepetitionRule
	CollRequiredRule
	CollManualActivationRule

	collCount
)

var collectionNames = [...]string{
	CollNone:                    "none",
	CollCases:                   "cases",
	CollCaseFileItemDefinitions: "caseFileItemDefinitions",
	CollArtifacts:               "artifacts",
	CollCasePlanModel:           "casePlanModel",
	CollCaseFileModel:           "caseFileModel",
	CollCaseFileItems:           "caseFileItems",
	CollPlanItems:               "planItems",
	CollSentries:                "sentries",
	CollPlanItemDefinitions:     "planItemDefinitions",
	CollPlanningTable:           "planningTable",
	CollTableItems:              "tableItems",
	CollApplicabilityRules:      "applicabilityRules",
	CollEntryCriteria:           "entryCriteria",
	CollExitCriteria:            "exitCriteria",
	CollOnParts:                 "onParts",
	CollItemControl:             "itemControl",
	CollDefaultControl:          "defaultControl",
	CollRepetitionRule:          "repetitionRule",
	CollRequiredRule:            "requiredRule",
	CollManualActivationRule:    "manualActivationRule",
}

func (c Collection) String() string {
	if c >= 0 && c < collCount {
		return collectionNames[c]
	}
	return fmt.Sprintf("Collection(%d)", int(c))
}

// Single reports whether the slot holds at most one node.
func (c Collection) Single() bool {
	switch c {
	case CollCasePlanModel, CollCaseFileModel, CollPlanningTable, CollItemControl,
		CollDefaultControl, CollRepetitionRule, CollRequiredRule, CollManualActivationRule:
		return true
	}
	return false
}

var (
	// ErrNoContainment is returned when a child kind has no containment slot
	// in a parent kind. Reaching it from a structural command is a
	// programming error.
	ErrNoContainment = errors.New("no containment category")

	// ErrSingleOccupied is returned when adding to a single-valued slot that
	// already holds another node.
	ErrSingleOccupied = errors.New("single-valued slot already occupied")
)

// CollectionFor resolves the slot a child of kind child occupies inside a
// parent of kind parent.
func CollectionFor(parent, child Kind) (Collection, error) {
	if c := collectionFor(parent, child); c != CollNone {
		return c, nil
	}
	return CollNone, fmt.Errorf("%w: %s in %s", ErrNoContainment, child, parent)
}

func collectionFor(parent, child Kind) Collection {
	switch parent {
	case KindDefinitions:
		switch {
		case child == KindCase:
			return CollCases
		case child == KindCaseFileItemDefinition:
			return CollCaseFileItemDefinitions
		case child.IsArtifact():
			return CollArtifacts
		}
	case KindCase:
		switch child {
		case KindCasePlanModel:
			return CollCasePlanModel
		case KindCaseFileModel:
			return CollCaseFileModel
		}
	case KindCaseFileModel:
		if child == KindCaseFileItem {
			return CollCaseFileItems
		}
	case KindCasePlanModel, KindStage:
		switch {
		case child == KindPlanItem:
			return CollPlanItems
		case child == KindSentry:
			return CollSentries
		case child.IsPlanItemDefinition():
			return CollPlanItemDefinitions
		case child == KindPlanningTable:
			return CollPlanningTable
		case child == KindExitCriterion && parent == KindCasePlanModel:
			return CollExitCriteria
		case child == KindPlanItemControl && parent == KindStage:
			return CollDefaultControl
		}
	case KindPlanFragment:
		switch child {
		case KindPlanItem:
			return CollPlanItems
		case KindSentry:
			return CollSentries
		case KindPlanItemControl:
			return CollDefaultControl
		}
	case KindHumanTask:
		switch child {
		case KindPlanningTable:
			return CollPlanningTable
		case KindPlanItemControl:
			return CollDefaultControl
		}
	case KindTask, KindProcessTask, KindCaseTask, KindDecisionTask, KindMilestone:
		if child == KindPlanItemControl {
			return CollDefaultControl
		}
	case KindPlanningTable:
		switch child {
		case KindDiscretionaryItem, KindPlanningTable:
			return CollTableItems
		case KindApplicabilityRule:
			return CollApplicabilityRules
		}
	case KindPlanItem, KindDiscretionaryItem:
		switch child {
		case KindEntryCriterion:
			return CollEntryCriteria
		case KindExitCriterion:
			return CollExitCriteria
		case KindPlanItemControl:
			return CollItemControl
		}
	case KindSentry:
		if child.IsOnPart() {
			return CollOnParts
		}
	case KindPlanItemControl:
		switch child {
		case KindRepetitionRule:
			return CollRepetitionRule
		case KindRequiredRule:
			return CollRequiredRule
		case KindManualActivationRule:
			return CollManualActivationRule
		}
	}
	return CollNone
}

// SymmetryError describes a node whose parent pointer and its parent's
// containment slots disagree.
type SymmetryError struct {
	Node   *Node
	Parent *Node
	Reason string
}

func (e *SymmetryError) Error() string {
	parentID := "<nil>"
	if e.Parent != nil {
		parentID = e.Parent.ID
	}
	return fmt.Sprintf("containment asymmetry at %s (parent %s): %s", e.Node.ID, parentID, e.Reason)
}

// CheckContainment verifies the containment symmetry invariant for every
// node reachable from root: a node appears in its parent's slot iff its
// Parent points to that parent, and appears in exactly one slot.
func CheckContainment(root *Node) error {
	seen := make(map[*Node]bool)
	var err error
	root.Walk(func(n *Node) bool {
		for _, c := range n.collections() {
			for _, child := range n.slots[c] {
				if seen[child] {
					err = &SymmetryError{Node: child, Parent: n, Reason: "contained more than once"}
					return false
				}
				seen[child] = true
				if child.Parent != n {
					err = &SymmetryError{Node: child, Parent: n, Reason: "parent pointer differs from container"}
					return false
				}
				if want := collectionFor(n.Kind, child.Kind); want != c {
					err = &SymmetryError{Node: child, Parent: n, Reason: "stored in " + c.String() + ", expected " + want.String()}
					return false
				}
			}
		}
		if n != root && n.Parent != nil && n.Parent.IndexOf(n) < 0 {
			err = &SymmetryError{Node: n, Parent: n.Parent, Reason: "missing from parent's slots"}
			return false
		}
		return true
	})
	return err
}
