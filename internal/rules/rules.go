// Package rules answers whether a modeling operation is legal on the
// current diagram. Every predicate is pure and never fails; an illegal
// operation is reported as false (or Denied) so callers can try
// alternatives.
package rules

import (
	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/config"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
)

// ConnectionType names the semantic flavour of a connection.
type ConnectionType int

const (
	ConnectionNone ConnectionType = iota
	ConnectionPlanItemOnPart
	ConnectionCaseFileItemOnPart
	ConnectionDiscretionary
	ConnectionAssociation
)

func (t ConnectionType) String() string {
	switch t {
	case ConnectionPlanItemOnPart:
		return "cmmn:PlanItemOnPart"
	case ConnectionCaseFileItemOnPart:
		return "cmmn:CaseFileItemOnPart"
	case ConnectionDiscretionary:
		return "cmmndi:DiscretionaryConnection"
	case ConnectionAssociation:
		return "cmmn:Association"
	}
	return "none"
}

// Kind returns the semantic kind behind t. Discretionary connections have
// no semantic node and report KindUnknown.
func (t ConnectionType) Kind() cmmn.Kind {
	switch t {
	case ConnectionPlanItemOnPart:
		return cmmn.KindPlanItemOnPart
	case ConnectionCaseFileItemOnPart:
		return cmmn.KindCaseFileItemOnPart
	case ConnectionAssociation:
		return cmmn.KindAssociation
	}
	return cmmn.KindUnknown
}

// Outcome is the tri-state answer of CanConnect.
type Outcome int

const (
	Denied Outcome = iota
	// Undecided means an endpoint is not known yet.
	Undecided
	Allowed
)

func (o Outcome) String() string {
	switch o {
	case Denied:
		return "denied"
	case Undecided:
		return "undecided"
	case Allowed:
		return "allowed"
	}
	return "unknown"
}

// Connect is the result of CanConnect.
type Connect struct {
	Outcome Outcome
	Type    ConnectionType
}

// OK reports whether the connection is allowed.
func (c Connect) OK() bool { return c.Outcome == Allowed }

// Replacement is one substitution CanReplace proposes.
type Replacement struct {
	OldElementID string
	NewKind      cmmn.Kind
}

// Rules evaluates modeling rules with the configured thresholds.
type Rules struct {
	cfg config.Rules
}

// New returns a rule engine. Zero thresholds fall back to the defaults.
func New(cfg config.Rules) *Rules {
	def := config.Default().Rules
	if cfg.AttachThreshold <= 0 {
		cfg.AttachThreshold = def.AttachThreshold
	}
	if cfg.MinSize.Stage.Width <= 0 || cfg.MinSize.Stage.Height <= 0 {
		cfg.MinSize.Stage = def.MinSize.Stage
	}
	if cfg.MinSize.Generic.Width <= 0 || cfg.MinSize.Generic.Height <= 0 {
		cfg.MinSize.Generic = def.MinSize.Generic
	}
	if cfg.MinSize.Annotation.Width <= 0 || cfg.MinSize.Annotation.Height <= 0 {
		cfg.MinSize.Annotation = def.MinSize.Annotation
	}
	return &Rules{cfg: cfg}
}

// ---------- Drop, move, create ----------

// CanDrop reports whether e may become a visual child of target.
// Criteria are never dropped, only attached.
func (r *Rules) CanDrop(e, target *diagram.Element) bool {
	if e == nil || target == nil || e == target {
		return false
	}
	if !e.IsShape() || target.IsLabel() || target.IsConnection() {
		return false
	}
	if target.HasAncestor(e) {
		return false
	}
	k := e.Kind()
	switch {
	case k.IsCriterion():
		return false
	case k == cmmn.KindCasePlanModel:
		return target.IsRoot()
	case k == cmmn.KindTextAnnotation || k == cmmn.KindCaseFileItem:
		return target.IsRoot() || target.IsPlanFragmentCapable()
	case k.IsItem():
		if !target.IsPlanFragmentCapable() {
			return false
		}
		// An item cannot be placed inside a stage it instantiates.
		return target.IsCasePlanModel() || target.Node.DefinitionRef != e.Node.DefinitionRef
	}
	return false
}

// CanMove reports whether elements may move into target. Attachers and
// children of moved shapes travel along and are not checked on their own.
func (r *Rules) CanMove(elements []*diagram.Element, target *diagram.Element) bool {
	if len(elements) == 0 || target == nil {
		return false
	}
	set := toSet(elements)
	moved := 0
	for _, e := range elements {
		if e.IsLabel() || e.IsConnection() || travelsWith(e, set) {
			continue
		}
		moved++
		if e.Kind().IsCriterion() {
			return false
		}
		if !r.CanDrop(e, target) {
			return false
		}
		if e.Is(cmmn.KindDiscretionaryItem) && isPlanFragment(target) && !connectedWithin(e, target, set) {
			return false
		}
	}
	return moved > 0
}

// CanCreate reports whether shape may be created in target, appended from
// source at position. Criteria are created by attaching.
func (r *Rules) CanCreate(shape, target, source *diagram.Element, position *cmmn.Point) bool {
	if shape == nil {
		return false
	}
	if shape.Kind().IsCriterion() {
		return r.CanAttach([]*diagram.Element{shape}, target, source, position)
	}
	if !r.CanDrop(shape, target) {
		return false
	}
	if shape.Is(cmmn.KindDiscretionaryItem) && isPlanFragment(target) {
		return source != nil && source.IsHumanTaskItem() && source.Parent == target
	}
	return true
}

// CanRemove returns the elements that may be deleted; labels are removed
// together with their owner.
func (r *Rules) CanRemove(elements []*diagram.Element) []*diagram.Element {
	var out []*diagram.Element
	for _, e := range elements {
		if e != nil && !e.IsLabel() {
			out = append(out, e)
		}
	}
	return out
}

// ---------- Attach ----------

// CanAttach reports whether elements (a single criterion) may attach to
// target at position. A nil position skips the border check.
func (r *Rules) CanAttach(elements []*diagram.Element, target, source *diagram.Element, position *cmmn.Point) bool {
	e, ok := r.attachCandidate(elements, target, position)
	if !ok {
		return false
	}
	switch e.Kind() {
	case cmmn.KindEntryCriterion:
		if source != nil && source == target {
			return false
		}
		return r.CanAttachEntryCriterion(target)
	case cmmn.KindExitCriterion:
		return r.CanAttachExitCriterion(target)
	}
	return false
}

func (r *Rules) attachCandidate(elements []*diagram.Element, target *diagram.Element, position *cmmn.Point) (*diagram.Element, bool) {
	if len(elements) != 1 || target == nil {
		return nil, false
	}
	e := elements[0]
	if e == nil || !e.IsShape() || !e.Kind().IsCriterion() || e == target {
		return nil, false
	}
	if !target.IsItem() && !target.IsCasePlanModel() {
		return nil, false
	}
	if position != nil && !r.nearBorder(target.Bounds, *position) {
		return nil, false
	}
	return e, true
}

// CanAttachEntryCriterion reports whether host accepts entry criteria:
// items whose definition is a task or a stage.
func (r *Rules) CanAttachEntryCriterion(host *diagram.Element) bool {
	if host == nil || !host.IsItem() {
		return false
	}
	k := host.DefinitionKind()
	return k.IsTask() || k == cmmn.KindStage
}

// CanAttachExitCriterion reports whether host accepts exit criteria: the
// case plan model, stages, and blocking tasks.
func (r *Rules) CanAttachExitCriterion(host *diagram.Element) bool {
	if host == nil {
		return false
	}
	if host.IsCasePlanModel() {
		return true
	}
	if !host.IsItem() {
		return false
	}
	k := host.DefinitionKind()
	switch {
	case k == cmmn.KindStage:
		return true
	case k.IsTask():
		return host.Node.DefinitionRef.IsBlocking
	}
	return false
}

func (r *Rules) nearBorder(b cmmn.Bounds, p cmmn.Point) bool {
	th := r.cfg.AttachThreshold
	outer := cmmn.Bounds{X: b.X - th, Y: b.Y - th, Width: b.Width + 2*th, Height: b.Height + 2*th}
	if !outer.Contains(p) {
		return false
	}
	if b.Width <= 2*th || b.Height <= 2*th {
		return true
	}
	inner := cmmn.Bounds{X: b.X + th, Y: b.Y + th, Width: b.Width - 2*th, Height: b.Height - 2*th}
	return !(p.X > inner.X && p.X < inner.X+inner.Width && p.Y > inner.Y && p.Y < inner.Y+inner.Height)
}

// ---------- Connect ----------

// CanConnect decides whether source and target may be connected and with
// which connection type. Types are tried in a fixed order: plan item
// on-part, case file item on-part, discretionary, association. conn is the
// connection being reconnected, if any.
func (r *Rules) CanConnect(source, target, conn *diagram.Element) Connect {
	if source == nil || target == nil {
		return Connect{Outcome: Undecided}
	}
	if source == target || !source.IsShape() || !target.IsShape() {
		return Connect{Outcome: Denied}
	}
	switch {
	case r.canConnectPlanItemOnPart(source, target):
		return Connect{Outcome: Allowed, Type: ConnectionPlanItemOnPart}
	case r.canConnectCaseFileItemOnPart(source, target):
		return Connect{Outcome: Allowed, Type: ConnectionCaseFileItemOnPart}
	case r.CanConnectDiscretionaryConnection(source, target, conn):
		return Connect{Outcome: Allowed, Type: ConnectionDiscretionary}
	case r.canConnectAssociation(source, target):
		return Connect{Outcome: Allowed, Type: ConnectionAssociation}
	}
	return Connect{Outcome: Denied}
}

func (r *Rules) canConnectPlanItemOnPart(source, target *diagram.Element) bool {
	if !source.IsItem() || !target.Kind().IsCriterion() {
		return false
	}
	// An entry criterion cannot wait for its own host.
	return !(target.Is(cmmn.KindEntryCriterion) && target.Host == source)
}

func (r *Rules) canConnectCaseFileItemOnPart(source, target *diagram.Element) bool {
	return source.Is(cmmn.KindCaseFileItem) && target.Kind().IsCriterion()
}

func (r *Rules) canConnectAssociation(source, target *diagram.Element) bool {
	return source.Is(cmmn.KindTextAnnotation) || target.Is(cmmn.KindTextAnnotation)
}

// CanConnectDiscretionaryConnection reports whether a discretionary
// connection may join source and target: a blocking human task and a
// discretionary item with the same parent and different definitions. A
// discretionary item belongs to at most one human task, so any other
// incoming discretionary connection (conn excluded) denies the request.
func (r *Rules) CanConnectDiscretionaryConnection(source, target, conn *diagram.Element) bool {
	if source == nil || target == nil || source == target {
		return false
	}
	if !source.IsHumanTaskItem() || !target.IsShape() || !target.Is(cmmn.KindDiscretionaryItem) {
		return false
	}
	def := source.Node.DefinitionRef
	if !def.IsBlocking {
		return false
	}
	if source.Parent != target.Parent {
		return false
	}
	if target.Node.DefinitionRef == def {
		return false
	}
	for _, in := range target.IncomingDiscretionary() {
		if in != conn {
			return false
		}
	}
	return !reachesDiscretionary(target, source)
}

// reachesDiscretionary reports whether to is reachable from from along
// outgoing discretionary connections.
func reachesDiscretionary(from, to *diagram.Element) bool {
	seen := map[*diagram.Element]bool{from: true}
	work := []*diagram.Element{from}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		if cur == to {
			return true
		}
		for _, c := range cur.OutgoingDiscretionary() {
			if c.Target != nil && !seen[c.Target] {
				seen[c.Target] = true
				work = append(work, c.Target)
			}
		}
	}
	return false
}

// ---------- Resize ----------

// CanResize reports whether shape may be resized, to newBounds when given.
// Only expanded containers and text annotations are resizable.
func (r *Rules) CanResize(shape *diagram.Element, newBounds *cmmn.Bounds) bool {
	if shape == nil || !shape.IsShape() {
		return false
	}
	annotation := shape.Is(cmmn.KindTextAnnotation)
	if !annotation && !shape.IsPlanFragmentCapable() {
		return false
	}
	if newBounds == nil {
		return true
	}
	limit := r.cfg.MinSize.Generic
	switch {
	case annotation:
		limit = r.cfg.MinSize.Annotation
	case shape.DefinitionKind() == cmmn.KindStage:
		limit = r.cfg.MinSize.Stage
	}
	return newBounds.Width >= limit.Width && newBounds.Height >= limit.Height
}

// ---------- Replace ----------

// CanReplace proposes substitutions that make an otherwise illegal move
// or attach of elements onto target legal: flipping entry and exit
// criteria, and turning a discretionary item without a planning context
// into a plan item.
func (r *Rules) CanReplace(elements []*diagram.Element, target *diagram.Element, position *cmmn.Point, source *diagram.Element) ([]Replacement, bool) {
	if target == nil {
		return nil, false
	}
	var out []Replacement
	set := toSet(elements)
	for _, e := range elements {
		if e == nil || !e.IsShape() {
			continue
		}
		switch {
		case e.Kind().IsCriterion():
			if _, ok := r.attachCandidate(elements, target, position); !ok {
				continue
			}
			entry, exit := r.CanAttachEntryCriterion(target), r.CanAttachExitCriterion(target)
			if e.Is(cmmn.KindEntryCriterion) && !entry && exit {
				out = append(out, Replacement{OldElementID: e.ID, NewKind: cmmn.KindExitCriterion})
			}
			if e.Is(cmmn.KindExitCriterion) && !exit && entry {
				out = append(out, Replacement{OldElementID: e.ID, NewKind: cmmn.KindEntryCriterion})
			}
		case e.Is(cmmn.KindDiscretionaryItem):
			if travelsWith(e, set) || !isPlanFragment(target) || !r.CanDrop(e, target) {
				continue
			}
			appended := source != nil && source.IsHumanTaskItem() && source.Parent == target
			if !appended && !connectedWithin(e, target, set) {
				out = append(out, Replacement{OldElementID: e.ID, NewKind: cmmn.KindPlanItem})
			}
		}
	}
	return out, len(out) > 0
}

// ---------- helpers ----------

func toSet(elements []*diagram.Element) map[*diagram.Element]bool {
	set := make(map[*diagram.Element]bool, len(elements))
	for _, e := range elements {
		set[e] = true
	}
	return set
}

// travelsWith reports whether e moves implicitly because its host or an
// ancestor is part of set.
func travelsWith(e *diagram.Element, set map[*diagram.Element]bool) bool {
	if e.Host != nil && set[e.Host] {
		return true
	}
	for p := e.Parent; p != nil; p = p.Parent {
		if set[p] {
			return true
		}
	}
	return false
}

// isPlanFragment reports whether target is an expanded plan fragment
// item, a container without planning semantics.
func isPlanFragment(target *diagram.Element) bool {
	return target.IsItem() && target.DefinitionKind() == cmmn.KindPlanFragment
}

// connectedWithin reports whether the discretionary item e keeps a
// discretionary connection from a human task moving along or already
// inside target.
func connectedWithin(e, target *diagram.Element, set map[*diagram.Element]bool) bool {
	for _, c := range e.IncomingDiscretionary() {
		if c.Source != nil && (set[c.Source] || c.Source.Parent == target) {
			return true
		}
	}
	return false
}
