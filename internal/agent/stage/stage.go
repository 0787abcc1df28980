// Package stage tracks the macro progress of a conversation through eight
// phases, independently of the decision router. The transition function is
// pure; persistence belongs to the caller.
package stage

import (
	"time"

	"github.com/dealerflow-core/server/internal/agent/model"
)

// idleAfter is the inactivity window after which any conversation parks in
// IDLE, whatever else the turn says.
const idleAfter = 60 * time.Minute

// minQualifiedSlots is the minimally-qualified gate for honoring a handoff.
const minQualifiedSlots = 2

// Input is the auxiliary context one stage advance consumes.
type Input struct {
	Action                  model.Action
	SlotsFilled             int
	HasCarShown             bool
	HasHandoff              bool
	MinutesSinceLastMessage float64
	UserIntent              model.Intent
}

// Result reports the outcome of one advance.
type Result struct {
	Stage        model.Stage
	Transitioned bool
	// Prompt is stage-specific guidance for downstream prompt shaping.
	Prompt string
}

// Machine computes stage transitions.
type Machine struct{}

// New returns a stage machine.
func New() *Machine { return &Machine{} }

// Next is the pure transition function.
func (m *Machine) Next(current model.Stage, in Input) model.Stage {
	// inactivity wins over everything
	if in.MinutesSinceLastMessage > idleAfter.Minutes() {
		return model.StageIdle
	}

	qualified := in.SlotsFilled >= minQualifiedSlots || in.HasCarShown

	if in.HasHandoff || in.Action == model.ActionHandoffSeller {
		// refuse to hand off an unqualified lead; keep qualifying instead
		if !qualified {
			return model.StageQualifying
		}
		return model.StageHandoff
	}

	switch in.Action {
	case model.ActionAskOneQuestion:
		return model.StageQualifying
	case model.ActionCallStockAPI:
		if in.HasCarShown {
			return model.StageComparing
		}
		return model.StageBrowsing
	case model.ActionExit:
		return model.StageIdle
	case model.ActionInfoStore, model.ActionSafeRefusal, model.ActionOutOfScope, model.ActionSilent:
		return current
	}

	// no action strongly implies a stage; infer from free-text intent
	switch in.UserIntent {
	case model.IntentNegotiate:
		return model.StageNegotiating
	case model.IntentVisit:
		return model.StageScheduling
	case model.IntentCompare:
		return model.StageComparing
	}

	// slot-fullness fallback
	if in.SlotsFilled >= minQualifiedSlots && !in.HasCarShown {
		return model.StageBrowsing
	}
	if in.SlotsFilled < minQualifiedSlots && current == model.StageGreeting {
		return model.StageQualifying
	}
	return current
}

// Advance applies Next to the persisted record: an actual transition
// appends to the capped history, a non-transition only bumps the turn
// counter.
func (m *Machine) Advance(state *model.FSMState, in Input, now time.Time) Result {
	if state == nil {
		state = model.NewFSMState(now)
	}
	next := m.Next(state.Stage, in)
	transitioned := next != state.Stage
	if transitioned {
		state.RecordTransition(next, now)
	}
	state.TurnCount++
	return Result{Stage: next, Transitioned: transitioned, Prompt: Prompt(next)}
}

// Prompt returns the per-stage guidance used to shape the generated reply.
func Prompt(s model.Stage) string {
	switch s {
	case model.StageGreeting:
		return "Welcome the lead warmly and ask what brings them in."
	case model.StageQualifying:
		return "Ask exactly one qualifying question; do not repeat anything already answered."
	case model.StageBrowsing:
		return "Present matching inventory concisely and invite a reaction."
	case model.StageComparing:
		return "Contrast the vehicles already shown; highlight concrete differences."
	case model.StageNegotiating:
		return "Acknowledge the negotiation and reassure that a seller will finalize terms."
	case model.StageScheduling:
		return "Offer concrete visit or test-drive time slots."
	case model.StageHandoff:
		return "A human seller owns this conversation; stay silent."
	case model.StageIdle:
		return "Conversation is dormant; only a follow-up collaborator may re-engage."
	}
	return ""
}
