package model

import "time"

// HandoffMode says who currently owns the conversation.
type HandoffMode string

const (
	HandoffBot   HandoffMode = "BOT"
	HandoffHuman HandoffMode = "HUMAN"
)

// Handoff records a transfer of the conversation to a human seller.
// Once Mode is HUMAN it stays HUMAN until explicitly reset by an operator.
type Handoff struct {
	Mode     HandoffMode `json:"mode"`
	SellerID string      `json:"seller_id,omitempty"`
	At       *time.Time  `json:"at,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

// Intent is the last coarse intent observed for the lead.
type Intent string

const (
	IntentBrowse           Intent = "browse"
	IntentCompare          Intent = "compare"
	IntentNegotiate        Intent = "negotiate"
	IntentVisit            Intent = "visit"
	IntentIdle             Intent = "idle"
	IntentFollowupResponse Intent = "followup_response"
)

// Slots holds the structured fields extracted from free text. Zero values
// mean "not filled". Fields are monotonic: once filled they are only
// replaced when a new user statement explicitly supersedes them.
type Slots struct {
	Category      string   `json:"category,omitempty"`
	Make          string   `json:"make,omitempty"`
	Model         string   `json:"model,omitempty"`
	BudgetMin     float64  `json:"budget_min,omitempty"`
	BudgetMax     float64  `json:"budget_max,omitempty"`
	PaymentMethod string   `json:"payment_method,omitempty"`
	HasTradeIn    *bool    `json:"has_trade_in,omitempty"`
	TradeInModel  string   `json:"trade_in_model,omitempty"`
	Urgency       string   `json:"urgency,omitempty"`
	Transmission  string   `json:"transmission,omitempty"`
	Color         string   `json:"color,omitempty"`
	Motor         string   `json:"motor,omitempty"`
	YearMin       int      `json:"year_min,omitempty"`
	YearMax       int      `json:"year_max,omitempty"`
}

// SlotName identifies a single slot, used by the question planner and the
// asked-slot tracker.
type SlotName string

const (
	SlotCategory     SlotName = "category"
	SlotBudget       SlotName = "budget"
	SlotPayment      SlotName = "payment_method"
	SlotTradeInModel SlotName = "trade_in_model"
	SlotMotor        SlotName = "motor"
	SlotTransmission SlotName = "transmission"
	SlotColor        SlotName = "color"
	SlotYear         SlotName = "year"
)

// IsEmpty reports whether no slot at all is filled.
func (s Slots) IsEmpty() bool {
	return s == Slots{}
}

// HasBudget reports whether any budget bound was captured.
func (s Slots) HasBudget() bool {
	return s.BudgetMin > 0 || s.BudgetMax > 0
}

// HasYear reports whether any year bound was captured.
func (s Slots) HasYear() bool {
	return s.YearMin > 0 || s.YearMax > 0
}

// GenericFilledCount counts the generic qualifying slots (budget, category,
// motor, year, color, payment, trade-in). Model and make are intentionally
// excluded: a specific model is sufficient on its own for search gating.
func (s Slots) GenericFilledCount() int {
	n := 0
	if s.HasBudget() {
		n++
	}
	if s.Category != "" {
		n++
	}
	if s.Motor != "" {
		n++
	}
	if s.HasYear() {
		n++
	}
	if s.Color != "" {
		n++
	}
	if s.PaymentMethod != "" {
		n++
	}
	if s.HasTradeIn != nil {
		n++
	}
	return n
}

// FilledCount counts every filled slot, model and make included. The FSM
// uses it for the minimally-qualified gate.
func (s Slots) FilledCount() int {
	n := s.GenericFilledCount()
	if s.Model != "" {
		n++
	}
	if s.Make != "" {
		n++
	}
	if s.Transmission != "" {
		n++
	}
	if s.TradeInModel != "" {
		n++
	}
	if s.Urgency != "" {
		n++
	}
	return n
}

// Merge folds newly extracted signals into the receiver, first writer wins.
// A trade-in statement supersedes an earlier "no trade-in" answer because it
// is an explicit new statement by the user; everything else is monotonic.
// It reports whether anything changed.
func (s *Slots) Merge(in Slots) bool {
	changed := false
	setStr := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			changed = true
		}
	}
	setStr(&s.Category, in.Category)
	setStr(&s.Make, in.Make)
	setStr(&s.Model, in.Model)
	setStr(&s.PaymentMethod, in.PaymentMethod)
	setStr(&s.TradeInModel, in.TradeInModel)
	setStr(&s.Urgency, in.Urgency)
	setStr(&s.Transmission, in.Transmission)
	setStr(&s.Color, in.Color)
	setStr(&s.Motor, in.Motor)
	if !s.HasBudget() && in.HasBudget() {
		s.BudgetMin, s.BudgetMax = in.BudgetMin, in.BudgetMax
		changed = true
	}
	if !s.HasYear() && in.HasYear() {
		s.YearMin, s.YearMax = in.YearMin, in.YearMax
		changed = true
	}
	if in.HasTradeIn != nil && (s.HasTradeIn == nil || (*in.HasTradeIn && !*s.HasTradeIn)) {
		v := *in.HasTradeIn
		s.HasTradeIn = &v
		changed = true
	}
	return changed
}

// CarShown is one inventory result already presented to the lead.
type CarShown struct {
	CarID   string    `json:"car_id"`
	ShownAt time.Time `json:"shown_at"`
	Summary string    `json:"summary"`
}

// ActionStatus is the lifecycle of a pending action.
type ActionStatus string

const (
	ActionOpen      ActionStatus = "OPEN"
	ActionDone      ActionStatus = "DONE"
	ActionCancelled ActionStatus = "CANCELLED"
)

// PendingAction is scheduled work owned by an external collaborator
// (e.g. a follow-up message) whose lifecycle the router can cancel.
type PendingAction struct {
	Type   string         `json:"type"`
	Status ActionStatus   `json:"status"`
	DueAt  *time.Time     `json:"due_at,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// ConversationState is the persisted per-lead state, keyed by phone. The
// engine never mutates a stored copy directly: the router emits a
// StateUpdate patch and the pipeline applies and persists it.
type ConversationState struct {
	Phone              string          `json:"phone"`
	Stage              Stage           `json:"stage"`
	Intent             Intent          `json:"intent,omitempty"`
	Handoff            Handoff         `json:"handoff"`
	Slots              Slots           `json:"slots"`
	CarsShown          []CarShown      `json:"cars_shown,omitempty"`
	PendingActions     []PendingAction `json:"pending_actions,omitempty"`
	LowSignalCount     int             `json:"low_signal_count"`
	HasPendingFollowup bool            `json:"has_pending_followup"`
	DoNotContact       bool            `json:"do_not_contact"`
	LastMessageAt      time.Time       `json:"last_message_at"`
}

// NewConversationState returns the state for a phone never seen before.
func NewConversationState(phone string) *ConversationState {
	return &ConversationState{
		Phone:   phone,
		Stage:   StageGreeting,
		Handoff: Handoff{Mode: HandoffBot},
	}
}

// HasContext reports whether the conversation accumulated anything a bare
// confirmation could refer to.
func (c *ConversationState) HasContext() bool {
	return !c.Slots.IsEmpty() || len(c.CarsShown) > 0
}

// OpenActions returns the pending actions still in OPEN status.
func (c *ConversationState) OpenActions() []PendingAction {
	var out []PendingAction
	for _, a := range c.PendingActions {
		if a.Status == ActionOpen {
			out = append(out, a)
		}
	}
	return out
}
