package repo

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/agent/model"
)

type memoryConversation struct {
	messages  []*schema.Message
	ranking   *model.Ranking
	expiresAt time.Time
}

// MemoryConversationRepository keeps conversations in process memory. It is
// used when no Redis URL is configured and by tests.
type MemoryConversationRepository struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	convs map[string]*memoryConversation
}

func NewMemoryConversationRepository(ttl time.Duration) *MemoryConversationRepository {
	return &MemoryConversationRepository{
		ttl:   ttl,
		now:   time.Now,
		convs: map[string]*memoryConversation{},
	}
}

// get returns the live conversation, dropping it when expired. Callers hold mu.
func (r *MemoryConversationRepository) get(conversationID string, create bool) *memoryConversation {
	c, ok := r.convs[conversationID]
	if ok && r.ttl > 0 && r.now().After(c.expiresAt) {
		delete(r.convs, conversationID)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		c = &memoryConversation{}
		r.convs[conversationID] = c
	}
	if create {
		c.expiresAt = r.now().Add(r.ttl)
	}
	return c
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, conversationID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(conversationID, true)
	c.messages = append(c.messages, message)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &model.ConversationHistory{ConversationID: conversationID, Messages: []*schema.Message{}}
	if c := r.get(conversationID, false); c != nil {
		h.Messages = slices.Clone(c.messages)
	}
	return h, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.get(conversationID, false); c != nil {
		return len(c.messages), nil
	}
	return 0, nil
}

func (r *MemoryConversationRepository) SaveRanking(_ context.Context, conversationID string, ranking *model.Ranking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(conversationID, true).ranking = ranking
	return nil
}

func (r *MemoryConversationRepository) LoadRanking(_ context.Context, conversationID string) (*model.Ranking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.get(conversationID, false); c != nil {
		return c.ranking, nil
	}
	return nil, nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
