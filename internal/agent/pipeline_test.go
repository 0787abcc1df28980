package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerflow-core/server/internal/agent/model"
	"github.com/dealerflow-core/server/internal/agent/repo"
	"github.com/dealerflow-core/server/internal/agent/turn"
)

type recordingInvoker struct {
	calls []ToolCall
}

func (r *recordingInvoker) Invoke(_ context.Context, call ToolCall) error {
	r.calls = append(r.calls, call)
	return nil
}

type harness struct {
	pipeline *Pipeline
	states   *repo.MemoryStateRepository
	fsm      *repo.MemoryFSMRepository
	asked    *repo.MemoryAskedSlotTracker
	history  *repo.MemoryHistoryRepository
	tools    *recordingInvoker
	outcomes []TurnOutcome
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		states:  repo.NewMemoryStateRepository(),
		fsm:     repo.NewMemoryFSMRepository(),
		asked:   repo.NewMemoryAskedSlotTracker(),
		history: repo.NewMemoryHistoryRepository(),
		tools:   &recordingInvoker{},
	}
	h.pipeline = NewPipeline(PipelineConfig{
		States:  h.states,
		FSM:     h.fsm,
		Asked:   h.asked,
		History: h.history,
		Tools:   h.tools,
		OnOutcome: func(_ string, o TurnOutcome) {
			h.outcomes = append(h.outcomes, o)
		},
	})
	return h
}

func (h *harness) turn(t *testing.T, phone, text string) {
	t.Helper()
	err := h.pipeline.HandleTurn(context.Background(), phone, "turn-1", []turn.Message{{Phone: phone, Text: text}})
	require.NoError(t, err)
}

func TestHandleTurnSearchPersistsSlotsAndCallsInventory(t *testing.T) {
	h := newHarness(t)
	phone := "+5511900000001"

	h.turn(t, phone, "procuro um suv automatico ate 80 mil")

	st, err := h.states.Load(context.Background(), phone)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "suv", st.Slots.Category)
	assert.Equal(t, 84000.0, st.Slots.BudgetMax)
	assert.Equal(t, "automatico", st.Slots.Transmission)
	assert.Equal(t, model.IntentBrowse, st.Intent)
	assert.Equal(t, model.StageBrowsing, st.Stage)
	assert.False(t, st.LastMessageAt.IsZero())

	require.Len(t, h.tools.calls, 1)
	call := h.tools.calls[0]
	assert.Equal(t, model.ToolInventorySearch, call.Tool)
	assert.Equal(t, phone, call.Phone)
	assert.Equal(t, "suv", call.State.Slots.Category, "tool sees the post-patch snapshot")

	n, err := h.history.MessageCount(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fsmState, err := h.fsm.Load(context.Background(), phone)
	require.NoError(t, err)
	require.NotNil(t, fsmState)
	assert.Equal(t, 1, fsmState.TurnCount)
	assert.Equal(t, model.StageBrowsing, fsmState.Stage)
}

func TestHandleTurnRecordsAskedSlotAndNeverRepeatsIt(t *testing.T) {
	h := newHarness(t)
	phone := "+5511900000002"

	h.turn(t, phone, "quero um sedan")

	require.Len(t, h.outcomes, 1)
	assert.Equal(t, model.ActionAskOneQuestion, h.outcomes[0].Result.Action)
	assert.Equal(t, model.SlotBudget, h.outcomes[0].Result.MissingSlot)

	asked, err := h.asked.Asked(context.Background(), phone)
	require.NoError(t, err)
	assert.Contains(t, asked, model.SlotBudget)

	// the lead dodges the budget question; the planner moves on instead
	// of asking it again
	h.turn(t, phone, "manual")

	require.Len(t, h.outcomes, 2)
	assert.Equal(t, model.ActionAskOneQuestion, h.outcomes[1].Result.Action)
	assert.Equal(t, model.SlotPayment, h.outcomes[1].Result.MissingSlot)

	st, err := h.states.Load(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, "sedan", st.Slots.Category)
	assert.Equal(t, "manual", st.Slots.Transmission)
	assert.Equal(t, model.StageQualifying, st.Stage)
}

func TestHandleTurnExitClearsAskedAndMarksDoNotContact(t *testing.T) {
	h := newHarness(t)
	phone := "+5511900000003"

	h.turn(t, phone, "quero um sedan")
	h.turn(t, phone, "nao quero mais, obrigado")

	require.Len(t, h.outcomes, 2)
	assert.Equal(t, model.ActionExit, h.outcomes[1].Result.Action)

	st, err := h.states.Load(context.Background(), phone)
	require.NoError(t, err)
	assert.True(t, st.DoNotContact)
	assert.Equal(t, model.IntentIdle, st.Intent)
	assert.Equal(t, model.StageIdle, st.Stage)

	asked, err := h.asked.Asked(context.Background(), phone)
	require.NoError(t, err)
	assert.Empty(t, asked)
}

func TestHandleTurnHandoffIsStickyAndSilencesFollowingTurns(t *testing.T) {
	h := newHarness(t)
	phone := "+5511900000004"

	h.turn(t, phone, "queria negociar o financiamento do civic")

	require.Len(t, h.outcomes, 1)
	assert.Equal(t, model.ActionHandoffSeller, h.outcomes[0].Result.Action)
	require.Len(t, h.tools.calls, 1)
	assert.Equal(t, model.ToolSellerHandoff, h.tools.calls[0].Tool)

	st, err := h.states.Load(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, model.HandoffHuman, st.Handoff.Mode)
	assert.Equal(t, model.StageHandoff, st.Stage, "two filled slots qualify the handoff")

	historyBefore, err := h.history.MessageCount(context.Background(), phone)
	require.NoError(t, err)

	h.turn(t, phone, "oi, tudo bem?")

	require.Len(t, h.outcomes, 2)
	assert.Equal(t, model.ActionSilent, h.outcomes[1].Result.Action)
	assert.Len(t, h.tools.calls, 1, "no tool fires while a human owns the conversation")

	historyAfter, err := h.history.MessageCount(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, historyBefore, historyAfter, "silent turns are not appended to history")

	st, err = h.states.Load(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, model.HandoffHuman, st.Handoff.Mode, "handoff never resets by itself")
}

func TestHandleTurnCoalescedBurstIsOneTurn(t *testing.T) {
	h := newHarness(t)
	phone := "+5511900000005"

	msgs := []turn.Message{
		{Phone: phone, Text: "quero um suv"},
		{Phone: phone, Text: "ate 80 mil"},
	}
	require.NoError(t, h.pipeline.HandleTurn(context.Background(), phone, "turn-1", msgs))

	require.Len(t, h.outcomes, 1)
	assert.Equal(t, model.ActionCallStockAPI, h.outcomes[0].Result.Action)

	st, err := h.states.Load(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, "suv", st.Slots.Category)
	assert.Equal(t, 84000.0, st.Slots.BudgetMax)

	fsmState, err := h.fsm.Load(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, 1, fsmState.TurnCount, "a burst advances the stage machine once")
}
