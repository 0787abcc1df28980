package model

import "time"

// Stage is one of the macro phases of a conversation.
type Stage string

const (
	StageGreeting    Stage = "GREETING"
	StageQualifying  Stage = "QUALIFYING"
	StageBrowsing    Stage = "BROWSING"
	StageComparing   Stage = "COMPARING"
	StageNegotiating Stage = "NEGOTIATING"
	StageScheduling  Stage = "SCHEDULING"
	StageHandoff     Stage = "HANDOFF"
	StageIdle        Stage = "IDLE"
)

// maxStageHistory caps the append-only transition log.
const maxStageHistory = 10

// StageEntry is one recorded transition.
type StageEntry struct {
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

// FSMState is the persisted macro-progress record for a lead. It shares the
// ConversationState lifecycle but is advanced independently, once per turn.
type FSMState struct {
	Stage         Stage        `json:"stage"`
	PreviousStage Stage        `json:"previous_stage,omitempty"`
	EnteredAt     time.Time    `json:"entered_at"`
	TurnCount     int          `json:"turn_count"`
	StageHistory  []StageEntry `json:"stage_history,omitempty"`
}

// NewFSMState returns the initial stage record for a new lead.
func NewFSMState(now time.Time) *FSMState {
	return &FSMState{Stage: StageGreeting, EnteredAt: now}
}

// RecordTransition moves the FSM to next, appending to the capped history.
// Callers must only invoke it for an actual change of stage.
func (f *FSMState) RecordTransition(next Stage, now time.Time) {
	f.PreviousStage = f.Stage
	f.Stage = next
	f.EnteredAt = now
	f.StageHistory = append(f.StageHistory, StageEntry{Stage: next, Timestamp: now})
	if len(f.StageHistory) > maxStageHistory {
		// drop oldest, never reorder
		f.StageHistory = f.StageHistory[len(f.StageHistory)-maxStageHistory:]
	}
}
