// Package router turns one aggregated turn plus persisted conversation
// state into exactly one decision. The cascade is an ordered list of
// (predicate, handler) pairs evaluated in sequence; the first predicate
// that holds wins and no later rule is consulted.
package router

import (
	"fmt"

	"github.com/dealerflow-core/server/internal/agent/classify"
	"github.com/dealerflow-core/server/internal/agent/extract"
	"github.com/dealerflow-core/server/internal/agent/model"
)

// lowSignalEscalation is the count at which accumulated filler replies
// hand the lead to a human. Escalation happens exactly when the counter
// reaches it, never before.
const lowSignalEscalation = 2

// Input is everything a routed turn consumes: the coalesced message, the
// persisted state and the already-asked slot list from the repetition
// tracker.
type Input struct {
	Message string
	State   *model.ConversationState
	Asked   []model.SlotName
}

// turnContext carries the signals computed once per turn across rules.
type turnContext struct {
	raw       string
	text      string
	state     *model.ConversationState
	asked     map[model.SlotName]bool
	extracted model.Slots
	merged    model.Slots
}

type rule struct {
	name string
	when func(*turnContext) bool
	run  func(*turnContext) model.RouterResult
}

// Router evaluates the fixed priority cascade. It is pure: Route never
// mutates its input and two calls with equal input yield equal output.
type Router struct {
	extractor *extract.Extractor
	rules     []rule
}

// New builds a router over the given extractor; nil means the default
// vocabulary.
func New(extractor *extract.Extractor) *Router {
	if extractor == nil {
		extractor = extract.New(nil)
	}
	r := &Router{extractor: extractor}
	r.rules = []rule{
		{"human_handoff_silence", r.whenHumanOwned, r.runSilent},
		{"safety", r.whenSafety, r.runSafeRefusal},
		{"exit", r.whenExit, r.runExit},
		{"out_of_scope", r.whenOutOfScope, r.runOutOfScope},
		{"greeting", r.whenGreeting, r.runGreeting},
		{"confirmation", r.whenConfirmation, r.runConfirmContext},
		{"frustration", r.whenFrustration, r.runFrustrationHandoff},
		{"negotiation", r.whenNegotiation, r.runNegotiationHandoff},
		{"store_info", r.whenStoreInfo, r.runStoreInfo},
		{"low_signal", r.whenLowSignal, r.runLowSignal},
		{"pending_followup", r.whenPendingFollowup, r.runFollowup},
		{"price_inquiry", r.whenPriceInquiry, r.runSearchOrAsk},
		{"stock_request", r.whenStockRequest, r.runSearchOrAsk},
		{"ask_next_slot", r.whenHasMissingSlot, r.runAskOneQuestion},
		{"smalltalk_fallback", func(*turnContext) bool { return true }, r.runSmalltalk},
	}
	return r
}

// RuleNames exposes the cascade order, mostly for tests asserting the
// first-match-wins contract.
func (r *Router) RuleNames() []string {
	names := make([]string, len(r.rules))
	for i, ru := range r.rules {
		names[i] = ru.name
	}
	return names
}

// Route evaluates the cascade for one turn.
func (r *Router) Route(in Input) model.RouterResult {
	state := in.State
	if state == nil {
		state = model.NewConversationState("")
	}
	ctx := &turnContext{
		raw:       in.Message,
		text:      r.extractor.CorrectTypos(extract.Normalize(in.Message)),
		state:     state,
		asked:     make(map[model.SlotName]bool, len(in.Asked)),
		extracted: r.extractor.Extract(in.Message),
	}
	for _, s := range in.Asked {
		ctx.asked[s] = true
	}
	ctx.merged = state.Slots
	ctx.merged.Merge(ctx.extracted)

	for _, ru := range r.rules {
		if ru.when(ctx) {
			return ru.run(ctx)
		}
	}
	// unreachable, the fallback predicate is constant true
	return model.RouterResult{Action: model.ActionSmalltalk, Reason: "fallback"}
}

// ================ predicates ================

func (r *Router) whenHumanOwned(c *turnContext) bool {
	return c.state.Handoff.Mode == model.HandoffHuman
}

func (r *Router) whenSafety(c *turnContext) bool { return classify.Safety(c.text) }
func (r *Router) whenExit(c *turnContext) bool   { return classify.Exit(c.text) }

func (r *Router) whenOutOfScope(c *turnContext) bool {
	hasVehicleSignal := c.extracted.Model != "" || c.extracted.Make != "" || c.extracted.Category != ""
	return classify.OutOfScope(c.text, hasVehicleSignal)
}

func (r *Router) whenGreeting(c *turnContext) bool { return classify.Greeting(c.text) }

func (r *Router) whenConfirmation(c *turnContext) bool {
	return classify.Confirmation(c.text, c.state.HasContext())
}

func (r *Router) whenFrustration(c *turnContext) bool {
	return classify.Frustration(c.text, c.raw)
}

func (r *Router) whenNegotiation(c *turnContext) bool { return classify.Negotiation(c.text) }
func (r *Router) whenStoreInfo(c *turnContext) bool   { return classify.StoreInfo(c.text) }
func (r *Router) whenLowSignal(c *turnContext) bool   { return classify.LowSignal(c.text) }

func (r *Router) whenPendingFollowup(c *turnContext) bool { return c.state.HasPendingFollowup }

func (r *Router) whenPriceInquiry(c *turnContext) bool { return classify.PriceInquiry(c.text) }

func (r *Router) whenStockRequest(c *turnContext) bool {
	return classify.StockRequest(c.text, c.extracted.HasBudget())
}

func (r *Router) whenHasMissingSlot(c *turnContext) bool {
	return r.nextMissingSlot(c) != ""
}

// ================ handlers ================

func (r *Router) runSilent(*turnContext) model.RouterResult {
	return model.RouterResult{
		Action: model.ActionSilent,
		Reason: "conversation owned by human seller",
	}
}

func (r *Router) runSafeRefusal(*turnContext) model.RouterResult {
	return model.RouterResult{
		Action: model.ActionSafeRefusal,
		Reason: "safety keyword detected",
	}
}

func (r *Router) runExit(c *turnContext) model.RouterResult {
	return model.RouterResult{
		Action: model.ActionExit,
		Reason: "explicit exit request",
		StateUpdate: &model.StateUpdate{
			SetDoNotContact:   true,
			CancelOpenActions: true,
			SetIntent:         model.IntentIdle,
		},
	}
}

func (r *Router) runOutOfScope(c *turnContext) model.RouterResult {
	return model.RouterResult{
		Action: model.ActionOutOfScope,
		Reason: "off-topic message with no vehicle signal",
	}
}

func (r *Router) runGreeting(c *turnContext) model.RouterResult {
	return model.RouterResult{
		Action:      model.ActionSmalltalk,
		Reason:      "greeting",
		StateUpdate: c.slotUpdate(),
	}
}

func (r *Router) runConfirmContext(c *turnContext) model.RouterResult {
	return model.RouterResult{
		Action: model.ActionConfirmContext,
		Reason: "confirmation with prior context",
	}
}

func (r *Router) runFrustrationHandoff(c *turnContext) model.RouterResult {
	return r.handoff(c, "user frustration detected")
}

func (r *Router) runNegotiationHandoff(c *turnContext) model.RouterResult {
	res := r.handoff(c, "negotiation intent detected")
	res.StateUpdate.SetIntent = model.IntentNegotiate
	return res
}

func (r *Router) runStoreInfo(c *turnContext) model.RouterResult {
	return model.RouterResult{
		Action: model.ActionInfoStore,
		Reason: "store information request",
	}
}

func (r *Router) runLowSignal(c *turnContext) model.RouterResult {
	count := c.state.LowSignalCount + 1
	if count >= lowSignalEscalation {
		res := r.handoff(c, fmt.Sprintf("low-signal streak reached %d", count))
		res.StateUpdate.LowSignalDelta = 1
		return res
	}
	return model.RouterResult{
		Action:      model.ActionSmalltalk,
		Reason:      "low-signal reply, nudging",
		StateUpdate: &model.StateUpdate{LowSignalDelta: 1},
	}
}

func (r *Router) runFollowup(c *turnContext) model.RouterResult {
	return model.RouterResult{
		Action:     model.ActionFollowup,
		Reason:     "reply to a pending follow-up",
		ToolToCall: model.ToolFollowupScheduling,
		StateUpdate: &model.StateUpdate{
			SetIntent:          model.IntentFollowupResponse,
			ClearPendingFollow: true,
			MergeSlots:         c.mergeSlotsOrNil(),
			ResetLowSignal:     !c.extracted.IsEmpty(),
		},
	}
}

// runSearchOrAsk serves both price inquiries and stock requests: search
// when minimally specified, otherwise ask the next qualifying question.
func (r *Router) runSearchOrAsk(c *turnContext) model.RouterResult {
	if r.searchGateOpen(c) {
		return model.RouterResult{
			Action:     model.ActionCallStockAPI,
			Reason:     "inventory search gate satisfied",
			ToolToCall: model.ToolInventorySearch,
			StateUpdate: &model.StateUpdate{
				MergeSlots:     c.mergeSlotsOrNil(),
				ResetLowSignal: !c.extracted.IsEmpty(),
				SetIntent:      model.IntentBrowse,
			},
		}
	}
	return r.runAskOneQuestion(c)
}

func (r *Router) runAskOneQuestion(c *turnContext) model.RouterResult {
	slot := r.nextMissingSlot(c)
	if slot == "" {
		return r.runSmalltalk(c)
	}
	return model.RouterResult{
		Action:      model.ActionAskOneQuestion,
		Reason:      fmt.Sprintf("qualifying question for %s", slot),
		MissingSlot: slot,
		StateUpdate: c.slotUpdate(),
	}
}

func (r *Router) runSmalltalk(c *turnContext) model.RouterResult {
	return model.RouterResult{
		Action:      model.ActionSmalltalk,
		Reason:      "no rule fired",
		StateUpdate: c.slotUpdate(),
	}
}

// ================ helpers ================

// handoff builds the HANDOFF_SELLER result with the sticky HUMAN patch.
func (r *Router) handoff(c *turnContext, reason string) model.RouterResult {
	return model.RouterResult{
		Action:     model.ActionHandoffSeller,
		Reason:     reason,
		ToolToCall: model.ToolSellerHandoff,
		StateUpdate: &model.StateUpdate{
			SetHandoff: &model.Handoff{Mode: model.HandoffHuman, Reason: reason},
			MergeSlots: c.mergeSlotsOrNil(),
		},
	}
}

// searchGateOpen applies minimum-slot-fulfillment: a specific model or
// brand is sufficient by itself, otherwise at least two generic slots.
func (r *Router) searchGateOpen(c *turnContext) bool {
	if c.merged.Model != "" || c.merged.Make != "" {
		return true
	}
	return c.merged.GenericFilledCount() >= 2
}

// askOrder is the fixed qualifying-question sequence.
var askOrder = []model.SlotName{
	model.SlotCategory,
	model.SlotBudget,
	model.SlotPayment,
	model.SlotTradeInModel,
	model.SlotMotor,
	model.SlotTransmission,
}

// nextMissingSlot walks the fixed order, skipping filled slots and slots
// the repetition tracker already asked.
func (r *Router) nextMissingSlot(c *turnContext) model.SlotName {
	for _, slot := range askOrder {
		if c.asked[slot] {
			continue
		}
		switch slot {
		case model.SlotCategory:
			if c.merged.Category == "" {
				return slot
			}
		case model.SlotBudget:
			if !c.merged.HasBudget() {
				return slot
			}
		case model.SlotPayment:
			if c.merged.PaymentMethod == "" {
				return slot
			}
		case model.SlotTradeInModel:
			// only relevant when a trade-in was flagged and the vehicle
			// itself is unknown
			if c.merged.HasTradeIn != nil && *c.merged.HasTradeIn && c.merged.TradeInModel == "" {
				return slot
			}
		case model.SlotMotor:
			if c.merged.Motor == "" {
				return slot
			}
		case model.SlotTransmission:
			if c.merged.Transmission == "" {
				return slot
			}
		}
	}
	return ""
}

// slotUpdate is the non-destructive default patch: merge whatever was
// extracted and reset the low-signal streak when the turn carried a
// qualifying signal.
func (c *turnContext) slotUpdate() *model.StateUpdate {
	if c.extracted.IsEmpty() {
		return nil
	}
	return &model.StateUpdate{
		MergeSlots:     c.mergeSlotsOrNil(),
		ResetLowSignal: true,
	}
}

func (c *turnContext) mergeSlotsOrNil() *model.Slots {
	if c.extracted.IsEmpty() {
		return nil
	}
	s := c.extracted
	return &s
}
