package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsMergeIsMonotonic(t *testing.T) {
	s := Slots{Model: "onix", BudgetMax: 70000}

	changed := s.Merge(Slots{Model: "corolla", Category: "sedan"})
	assert.True(t, changed)
	assert.Equal(t, "onix", s.Model, "first writer wins")
	assert.Equal(t, "sedan", s.Category, "empty field accepts the new value")

	changed = s.Merge(Slots{BudgetMin: 50000, BudgetMax: 90000})
	assert.False(t, changed, "budget already filled")
	assert.Equal(t, 70000.0, s.BudgetMax)
}

func TestSlotsMergeTradeInSupersedes(t *testing.T) {
	no, yes := false, true
	s := Slots{HasTradeIn: &no}

	s.Merge(Slots{HasTradeIn: &yes})
	require.NotNil(t, s.HasTradeIn)
	assert.True(t, *s.HasTradeIn, "an explicit trade-in statement supersedes an earlier no")

	s2 := Slots{HasTradeIn: &yes}
	s2.Merge(Slots{HasTradeIn: &no})
	assert.True(t, *s2.HasTradeIn, "a later no does not silently erase the flag")
}

func TestGenericFilledCountExcludesModelAndMake(t *testing.T) {
	yes := true
	s := Slots{
		Model:      "corolla",
		Make:       "toyota",
		BudgetMax:  80000,
		Category:   "sedan",
		HasTradeIn: &yes,
	}
	assert.Equal(t, 3, s.GenericFilledCount())
	assert.Equal(t, 5, s.FilledCount())
}

func TestStateUpdateApply(t *testing.T) {
	now := time.Now()
	st := NewConversationState("+5511999")
	st.PendingActions = []PendingAction{
		{Type: "followup", Status: ActionOpen},
		{Type: "visit", Status: ActionDone},
	}
	st.LowSignalCount = 2
	st.HasPendingFollowup = true

	u := &StateUpdate{
		MergeSlots:         &Slots{Category: "suv"},
		ResetLowSignal:     true,
		SetIntent:          IntentBrowse,
		SetHandoff:         &Handoff{Mode: HandoffHuman, Reason: "negotiation"},
		SetDoNotContact:    true,
		CancelOpenActions:  true,
		ClearPendingFollow: true,
	}
	u.Apply(st, now)

	assert.Equal(t, "suv", st.Slots.Category)
	assert.Zero(t, st.LowSignalCount)
	assert.Equal(t, IntentBrowse, st.Intent)
	assert.Equal(t, HandoffHuman, st.Handoff.Mode)
	require.NotNil(t, st.Handoff.At)
	assert.Equal(t, now, *st.Handoff.At)
	assert.True(t, st.DoNotContact)
	assert.Equal(t, ActionCancelled, st.PendingActions[0].Status)
	assert.Equal(t, ActionDone, st.PendingActions[1].Status, "only open actions are cancelled")
	assert.False(t, st.HasPendingFollowup)
}

func TestStateUpdateApplyNilIsNoOp(t *testing.T) {
	st := NewConversationState("+5511998")
	var u *StateUpdate
	u.Apply(st, time.Now())
	assert.Equal(t, *NewConversationState("+5511998"), *st)
}

func TestFSMStateHistoryCap(t *testing.T) {
	now := time.Now()
	f := NewFSMState(now)
	stages := []Stage{StageQualifying, StageBrowsing}
	for i := 0; i < 12; i++ {
		f.RecordTransition(stages[i%2], now.Add(time.Duration(i)*time.Second))
	}
	assert.Len(t, f.StageHistory, 10)
	assert.Equal(t, f.Stage, f.StageHistory[9].Stage)
	assert.Equal(t, StageQualifying, f.PreviousStage)
}
