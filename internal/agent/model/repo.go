package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// StateRepository persists ConversationState keyed by phone. Load returns
// (nil, nil) for a phone never seen, and callers treat that as a brand-new
// conversation. Save must be atomic per phone; the turn coordinator
// guarantees it is never called concurrently for the same key.
type StateRepository interface {
	Load(ctx context.Context, phone string) (*ConversationState, error)
	Save(ctx context.Context, state *ConversationState) error
	Delete(ctx context.Context, phone string) error
}

// FSMRepository persists the per-lead stage record. Same lifecycle and
// miss semantics as StateRepository.
type FSMRepository interface {
	Load(ctx context.Context, phone string) (*FSMState, error)
	Save(ctx context.Context, phone string, state *FSMState) error
}

// AskedSlotTracker remembers which qualifying questions were already asked
// in a conversation, so the router never repeats one. Entries expire with
// the conversation and are cleared on exit.
type AskedSlotTracker interface {
	MarkAsked(ctx context.Context, phone string, slot SlotName) error
	Asked(ctx context.Context, phone string) ([]SlotName, error)
	Clear(ctx context.Context, phone string) error
}

// HistoryRepository stores the message transcript for a lead. Messages use
// the eino schema so the downstream response layer consumes history without
// conversion.
type HistoryRepository interface {
	AddMessage(ctx context.Context, phone string, message *schema.Message) error
	LoadHistory(ctx context.Context, phone string) (*ConversationHistory, error)
	ClearHistory(ctx context.Context, phone string) error
	MessageCount(ctx context.Context, phone string) (int, error)
}

// ConversationHistory is a loaded transcript.
type ConversationHistory struct {
	Phone    string
	Messages []*schema.Message
}
