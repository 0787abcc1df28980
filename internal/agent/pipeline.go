// Package agent wires the policy engine together: the turn coordinator
// hands it a coalesced turn, it loads persisted state, routes, persists the
// resulting patch, advances the stage machine and notifies the external
// collaborator named by the decision.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/dealerflow-core/server/internal/agent/classify"
	"github.com/dealerflow-core/server/internal/agent/extract"
	"github.com/dealerflow-core/server/internal/agent/model"
	"github.com/dealerflow-core/server/internal/agent/router"
	"github.com/dealerflow-core/server/internal/agent/stage"
	"github.com/dealerflow-core/server/internal/agent/turn"
	logx "github.com/dealerflow-core/server/pkg/logger"
)

// ToolCall names the external collaborator work a routed turn requires.
type ToolCall struct {
	Tool        model.Tool
	Phone       string
	TurnID      string
	Reason      string
	MissingSlot model.SlotName
	State       model.ConversationState // snapshot after the patch applied
}

// ToolInvoker is the boundary to the inventory-search, seller-handoff and
// follow-up-scheduling collaborators. The engine owns no network call;
// implementations do.
type ToolInvoker interface {
	Invoke(ctx context.Context, call ToolCall) error
}

// TurnOutcome is what one processed turn produced, surfaced to callers for
// observability and prompt shaping.
type TurnOutcome struct {
	TurnID string
	Result model.RouterResult
	Stage  stage.Result
}

// OutcomeFunc observes processed turns; optional.
type OutcomeFunc func(phone string, outcome TurnOutcome)

// Pipeline is the per-turn orchestration.
type Pipeline struct {
	states    model.StateRepository
	fsm       model.FSMRepository
	asked     model.AskedSlotTracker
	history   model.HistoryRepository
	router    *router.Router
	stages    *stage.Machine
	tools     ToolInvoker
	onOutcome OutcomeFunc
	now       func() time.Time
}

// PipelineConfig collects the pipeline's collaborators. Router and Machine
// default when nil; repositories are required.
type PipelineConfig struct {
	States    model.StateRepository
	FSM       model.FSMRepository
	Asked     model.AskedSlotTracker
	History   model.HistoryRepository
	Router    *router.Router
	Stages    *stage.Machine
	Tools     ToolInvoker
	OnOutcome OutcomeFunc
}

// NewPipeline builds the orchestration layer.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	r := cfg.Router
	if r == nil {
		r = router.New(nil)
	}
	st := cfg.Stages
	if st == nil {
		st = stage.New()
	}
	return &Pipeline{
		states:    cfg.States,
		fsm:       cfg.FSM,
		asked:     cfg.Asked,
		history:   cfg.History,
		router:    r,
		stages:    st,
		tools:     cfg.Tools,
		onOutcome: cfg.OnOutcome,
		now:       time.Now,
	}
}

// HandleTurn is the turn.Handler the coordinator drives. Per-key FIFO in
// the coordinator guarantees it never runs concurrently for one phone, so
// load-patch-save here is free of lost updates.
func (p *Pipeline) HandleTurn(ctx context.Context, phone string, turnID string, msgs []turn.Message) error {
	text := joinTurnText(msgs)
	now := p.now()

	state, err := p.states.Load(ctx, phone)
	if err != nil {
		// state-load failure: treat the phone as a brand-new conversation
		logx.Warn().Err(err).Str("phone", phone).Msg("state load failed, starting fresh")
		state = nil
	}
	if state == nil {
		state = model.NewConversationState(phone)
	}

	askedSlots, err := p.asked.Asked(ctx, phone)
	if err != nil {
		logx.Warn().Err(err).Str("phone", phone).Msg("asked-slot load failed, assuming none")
		askedSlots = nil
	}

	minutesSince := 0.0
	if !state.LastMessageAt.IsZero() {
		minutesSince = now.Sub(state.LastMessageAt).Minutes()
	}

	res := p.router.Route(router.Input{Message: text, State: state, Asked: askedSlots})

	// the single persister applies the patch before the next turn for this
	// phone can observe the state
	res.StateUpdate.Apply(state, now)
	state.LastMessageAt = now

	if res.MissingSlot != "" {
		if err := p.asked.MarkAsked(ctx, phone, res.MissingSlot); err != nil {
			logx.Warn().Err(err).Str("phone", phone).Msg("failed to record asked slot")
		}
	}
	if res.Action == model.ActionExit {
		if err := p.asked.Clear(ctx, phone); err != nil {
			logx.Warn().Err(err).Str("phone", phone).Msg("failed to clear asked slots")
		}
	}

	stageRes, err := p.advanceStage(ctx, phone, state, res, text, minutesSince, now)
	if err != nil {
		return err
	}
	state.Stage = stageRes.Stage
	if err := p.states.Save(ctx, state); err != nil {
		return err
	}

	if p.history != nil && res.Action != model.ActionSilent {
		if err := p.history.AddMessage(ctx, phone, schema.UserMessage(text)); err != nil {
			logx.Warn().Err(err).Str("phone", phone).Msg("failed to append history")
		}
	}

	if p.tools != nil && res.ToolToCall != "" {
		call := ToolCall{
			Tool:        res.ToolToCall,
			Phone:       phone,
			TurnID:      turnID,
			Reason:      res.Reason,
			MissingSlot: res.MissingSlot,
			State:       *state,
		}
		if err := p.tools.Invoke(ctx, call); err != nil {
			logx.Error().Err(err).
				Str("phone", phone).
				Str("tool", string(res.ToolToCall)).
				Msg("tool invocation failed")
		}
	}

	logx.Info().
		Str("component", "pipeline").
		Str("phone", phone).
		Str("turn_id", turnID).
		Str("action", string(res.Action)).
		Str("stage", string(stageRes.Stage)).
		Str("reason", res.Reason).
		Msg("turn processed")

	if p.onOutcome != nil {
		p.onOutcome(phone, TurnOutcome{TurnID: turnID, Result: res, Stage: stageRes})
	}
	return nil
}

// advanceStage updates the independently persisted FSM record.
func (p *Pipeline) advanceStage(ctx context.Context, phone string, state *model.ConversationState, res model.RouterResult, text string, minutesSince float64, now time.Time) (stage.Result, error) {
	fsmState, err := p.fsm.Load(ctx, phone)
	if err != nil {
		logx.Warn().Err(err).Str("phone", phone).Msg("fsm load failed, starting fresh")
		fsmState = nil
	}
	if fsmState == nil {
		fsmState = model.NewFSMState(now)
	}

	in := stage.Input{
		Action:                  res.Action,
		SlotsFilled:             state.Slots.FilledCount(),
		HasCarShown:             len(state.CarsShown) > 0,
		HasHandoff:              state.Handoff.Mode == model.HandoffHuman,
		MinutesSinceLastMessage: minutesSince,
		UserIntent:              classify.Intent(extract.Normalize(text)),
	}
	out := p.stages.Advance(fsmState, in, now)

	if err := p.fsm.Save(ctx, phone, fsmState); err != nil {
		return out, err
	}
	return out, nil
}

// joinTurnText flattens a coalesced burst into the single logical turn the
// router evaluates.
func joinTurnText(msgs []turn.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if t := strings.TrimSpace(m.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
