package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/dealerflow-core/server/internal/agent/model"
)

// In-memory repositories with the same contracts as the Redis ones. They
// back tests and local runs without an external store.

type MemoryStateRepository struct {
	mu     sync.Mutex
	states map[string]model.ConversationState
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{states: make(map[string]model.ConversationState)}
}

func (r *MemoryStateRepository) Load(_ context.Context, phone string) (*model.ConversationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[phone]
	if !ok {
		return nil, nil
	}
	cp := st
	return &cp, nil
}

func (r *MemoryStateRepository) Save(_ context.Context, state *model.ConversationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.Phone] = *state
	return nil
}

func (r *MemoryStateRepository) Delete(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, phone)
	return nil
}

var _ model.StateRepository = (*MemoryStateRepository)(nil)

type MemoryFSMRepository struct {
	mu     sync.Mutex
	states map[string]model.FSMState
}

func NewMemoryFSMRepository() *MemoryFSMRepository {
	return &MemoryFSMRepository{states: make(map[string]model.FSMState)}
}

func (r *MemoryFSMRepository) Load(_ context.Context, phone string) (*model.FSMState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[phone]
	if !ok {
		return nil, nil
	}
	cp := st
	cp.StageHistory = append([]model.StageEntry(nil), st.StageHistory...)
	return &cp, nil
}

func (r *MemoryFSMRepository) Save(_ context.Context, phone string, state *model.FSMState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *state
	cp.StageHistory = append([]model.StageEntry(nil), state.StageHistory...)
	r.states[phone] = cp
	return nil
}

var _ model.FSMRepository = (*MemoryFSMRepository)(nil)

type MemoryAskedSlotTracker struct {
	mu    sync.Mutex
	asked map[string]map[model.SlotName]bool
}

func NewMemoryAskedSlotTracker() *MemoryAskedSlotTracker {
	return &MemoryAskedSlotTracker{asked: make(map[string]map[model.SlotName]bool)}
}

func (r *MemoryAskedSlotTracker) MarkAsked(_ context.Context, phone string, slot model.SlotName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.asked[phone]
	if !ok {
		set = make(map[model.SlotName]bool)
		r.asked[phone] = set
	}
	set[slot] = true
	return nil
}

func (r *MemoryAskedSlotTracker) Asked(_ context.Context, phone string) ([]model.SlotName, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SlotName
	for s := range r.asked[phone] {
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryAskedSlotTracker) Clear(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.asked, phone)
	return nil
}

var _ model.AskedSlotTracker = (*MemoryAskedSlotTracker)(nil)

type MemoryHistoryRepository struct {
	mu       sync.Mutex
	messages map[string][]*schema.Message
}

func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{messages: make(map[string][]*schema.Message)}
}

func (r *MemoryHistoryRepository) AddMessage(_ context.Context, phone string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[phone] = append(r.messages[phone], message)
	return nil
}

func (r *MemoryHistoryRepository) LoadHistory(_ context.Context, phone string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := append([]*schema.Message(nil), r.messages[phone]...)
	return &model.ConversationHistory{Phone: phone, Messages: msgs}, nil
}

func (r *MemoryHistoryRepository) ClearHistory(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, phone)
	return nil
}

func (r *MemoryHistoryRepository) MessageCount(_ context.Context, phone string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[phone]), nil
}

var _ model.HistoryRepository = (*MemoryHistoryRepository)(nil)
