package cmmn

import "fmt"

// Kind classifies nodes in the CMMN semantic tree. The set is closed:
// every switch over Kind in this module is expected to be exhaustive.
type Kind int

const (
	KindUnknown Kind = iota
	KindDefinitions
	KindCase
	KindCaseFileModel
	KindCaseFileItem
	KindCaseFileItemDefinition
	KindCasePlanModel
	KindStage
	KindPlanFragment
	KindPlanItem
	KindDiscretionaryItem
	KindTask
	KindHumanTask
	KindProcessTask
	KindCaseTask
	KindDecisionTask
	KindMilestone
	KindEventListener
	KindTimerEventListener
	KindUserEventListener
	KindPlanningTable
	KindPlanItemControl
	KindRepetitionRule
	KindRequiredRule
	KindManualActivationRule
	KindApplicabilityRule
	KindSentry
	KindEntryCriterion
	KindExitCriterion
	KindPlanItemOnPart
	KindCaseFileItemOnPart
	KindTextAnnotation
	KindAssociation

	kindCount
)

var kindNames = [...]string{
	KindUnknown:                "cmmn:Unknown",
	KindDefinitions:            "cmmn:Definitions",
	KindCase:                   "cmmn:Case",
	KindCaseFileModel:          "cmmn:CaseFileModel",
	KindCaseFileItem:           "cmmn:CaseFileItem",
	KindCaseFileItemDefinition: "cmmn:CaseFileItemDefinition",
	KindCasePlanModel:          "cmmn:CasePlanModel",
	KindStage:                  "cmmn:Stage",
	KindPlanFragment:           "cmmn:PlanFragment",
	KindPlanItem:               "cmmn:PlanItem",
	KindDiscretionaryItem:      "cmmn:DiscretionaryItem",
	KindTask:                   "cmmn:Task",
	KindHumanTask:              "cmmn:HumanTask",
	KindProcessTask:            "cmmn:ProcessTask",
	KindCaseTask:               "cmmn:CaseTask",
	KindDecisionTask:           "cmmn:DecisionTask",
	KindMilestone:              "cmmn:Milestone",
	KindEventListener:          "cmmn:EventListener",
	KindTimerEventListener:     "cmmn:TimerEventListener",
	KindUserEventListener:      "cmmn:UserEventListener",
	KindPlanningTable:          "cmmn:PlanningTable",
	KindPlanItemControl:        "cmmn:PlanItemControl",
	KindRepetitionRule:         "cmmn:RepetitionRule",
	KindRequiredRule:           "cmmn:RequiredRule",
	KindManualActivationRule:   "cmmn:ManualActivationRule",
	KindApplicabilityRule:      "cmmn:ApplicabilityRule",
	KindSentry:                 "cmmn:Sentry",
	KindEntryCriterion:         "cmmn:EntryCriterion",
	KindExitCriterion:          "cmmn:ExitCriterion",
	KindPlanItemOnPart:         "cmmn:PlanItemOnPart",
	KindCaseFileItemOnPart:     "cmmn:CaseFileItemOnPart",
	KindTextAnnotation:         "cmmn:TextAnnotation",
	KindAssociation:            "cmmn:Association",
}

// String returns the qualified CMMN tag, e.g. "cmmn:HumanTask".
func (k Kind) String() string {
	if k >= 0 && k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("cmmn:Kind(%d)", int(k))
}

// ParseKind resolves a qualified ("cmmn:HumanTask") or bare ("HumanTask")
// tag to its Kind.
func ParseKind(s string) (Kind, error) {
	for k := KindDefinitions; k < kindCount; k++ {
		name := kindNames[k]
		if s == name || "cmmn:"+s == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown cmmn kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Prefix is the id prefix used for freshly created nodes of this kind.
func (k Kind) Prefix() string {
	if k <= KindUnknown || k >= kindCount {
		return "Element"
	}
	return kindNames[k][len("cmmn:"):]
}

// IsItem reports whether k is a plan item or a discretionary item.
func (k Kind) IsItem() bool {
	return k == KindPlanItem || k == KindDiscretionaryItem
}

// IsTask reports whether k is one of the task definitions.
func (k Kind) IsTask() bool {
	switch k {
	case KindTask, KindHumanTask, KindProcessTask, KindCaseTask, KindDecisionTask:
		return true
	}
	return false
}

// IsEventListener reports whether k is an event listener definition.
func (k Kind) IsEventListener() bool {
	switch k {
	case KindEventListener, KindTimerEventListener, KindUserEventListener:
		return true
	}
	return false
}

// IsPlanItemDefinition reports whether k may be referenced by an item's
// definitionRef.
func (k Kind) IsPlanItemDefinition() bool {
	switch k {
	case KindStage, KindPlanFragment, KindMilestone:
		return true
	}
	return k.IsTask() || k.IsEventListener()
}

// IsStageLike reports whether k owns plan item definitions (a stage or the
// case plan model).
func (k Kind) IsStageLike() bool {
	return k == KindStage || k == KindCasePlanModel
}

// IsPlanFragmentLike reports whether k holds plan items and sentries.
func (k Kind) IsPlanFragmentLike() bool {
	return k == KindPlanFragment || k.IsStageLike()
}

// CanOwnPlanningTable reports whether a definition of kind k may carry a
// planning table.
func (k Kind) CanOwnPlanningTable() bool {
	return k == KindHumanTask || k.IsStageLike()
}

// CanBlock reports whether k carries the isBlocking flag.
func (k Kind) CanBlock() bool {
	return k.IsTask()
}

// HasDefaultControl reports whether a definition of kind k may carry a
// defaultControl.
func (k Kind) HasDefaultControl() bool {
	return k.IsTask() || k == KindStage || k == KindMilestone || k == KindPlanFragment
}

// IsCriterion reports whether k is an entry or exit criterion.
func (k Kind) IsCriterion() bool {
	return k == KindEntryCriterion || k == KindExitCriterion
}

// IsOnPart reports whether k is a sentry on-part.
func (k Kind) IsOnPart() bool {
	return k == KindPlanItemOnPart || k == KindCaseFileItemOnPart
}

// IsRule reports whether k is a plan item control rule.
func (k Kind) IsRule() bool {
	switch k {
	case KindRepetitionRule, KindRequiredRule, KindManualActivationRule:
		return true
	}
	return false
}

// IsArtifact reports whether k is a text annotation or association.
func (k Kind) IsArtifact() bool {
	return k == KindTextAnnotation || k == KindAssociation
}

// IsShared reports whether nodes of kind k may be referenced by several
// semantic nodes and therefore participate in reference counting.
func (k Kind) IsShared() bool {
	return k.IsPlanItemDefinition() || k == KindSentry || k == KindCaseFileItemDefinition
}
