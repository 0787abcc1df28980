package model

import "time"

// Action is the single decision the router emits for a turn.
type Action string

const (
	ActionSilent         Action = "SILENT"
	ActionSafeRefusal    Action = "SAFE_REFUSAL"
	ActionExit           Action = "EXIT"
	ActionOutOfScope     Action = "OUT_OF_SCOPE"
	ActionSmalltalk      Action = "SMALLTALK"
	ActionConfirmContext Action = "CONFIRM_CONTEXT"
	ActionHandoffSeller  Action = "HANDOFF_SELLER"
	ActionInfoStore      Action = "INFO_STORE"
	ActionFollowup       Action = "FOLLOWUP"
	ActionCallStockAPI   Action = "CALL_STOCK_API"
	ActionAskOneQuestion Action = "ASK_ONE_QUESTION"
)

// Tool names the external collaborator the caller must invoke for an action.
type Tool string

const (
	ToolInventorySearch    Tool = "inventory-search"
	ToolSellerHandoff      Tool = "seller-handoff"
	ToolFollowupScheduling Tool = "follow-up-scheduling"
)

// RouterResult is the outcome of one routed turn. StateUpdate is a patch
// the caller must persist atomically before the next turn for the same
// phone is processed; the router itself mutates nothing.
type RouterResult struct {
	Action      Action       `json:"action"`
	Reason      string       `json:"reason"`
	ToolToCall  Tool         `json:"tool_to_call,omitempty"`
	MissingSlot SlotName     `json:"missing_slot,omitempty"`
	StateUpdate *StateUpdate `json:"state_update,omitempty"`
}

// StateUpdate is an immutable description of the changes a turn produced.
type StateUpdate struct {
	MergeSlots         *Slots   `json:"merge_slots,omitempty"`
	LowSignalDelta     int      `json:"low_signal_delta,omitempty"`
	ResetLowSignal     bool     `json:"reset_low_signal,omitempty"`
	SetIntent          Intent   `json:"set_intent,omitempty"`
	SetHandoff         *Handoff `json:"set_handoff,omitempty"`
	SetDoNotContact    bool     `json:"set_do_not_contact,omitempty"`
	CancelOpenActions  bool     `json:"cancel_open_actions,omitempty"`
	ClearPendingFollow bool     `json:"clear_pending_followup,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (u *StateUpdate) IsZero() bool {
	if u == nil {
		return true
	}
	return (u.MergeSlots == nil || u.MergeSlots.IsEmpty()) &&
		u.LowSignalDelta == 0 && !u.ResetLowSignal &&
		u.SetIntent == "" && u.SetHandoff == nil &&
		!u.SetDoNotContact && !u.CancelOpenActions && !u.ClearPendingFollow
}

// Apply folds the patch into a state. Only the single external persister is
// supposed to call this, after the turn's routing completed.
func (u *StateUpdate) Apply(c *ConversationState, now time.Time) {
	if u == nil || c == nil {
		return
	}
	if u.MergeSlots != nil {
		c.Slots.Merge(*u.MergeSlots)
	}
	if u.ResetLowSignal {
		c.LowSignalCount = 0
	} else if u.LowSignalDelta != 0 {
		c.LowSignalCount += u.LowSignalDelta
		if c.LowSignalCount < 0 {
			c.LowSignalCount = 0
		}
	}
	if u.SetIntent != "" {
		c.Intent = u.SetIntent
	}
	if u.SetHandoff != nil {
		h := *u.SetHandoff
		if h.At == nil {
			t := now
			h.At = &t
		}
		c.Handoff = h
	}
	if u.SetDoNotContact {
		c.DoNotContact = true
	}
	if u.CancelOpenActions {
		for i := range c.PendingActions {
			if c.PendingActions[i].Status == ActionOpen {
				c.PendingActions[i].Status = ActionCancelled
			}
		}
	}
	if u.ClearPendingFollow {
		c.HasPendingFollowup = false
	}
}
