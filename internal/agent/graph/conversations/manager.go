package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/agent/model"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         config.MaxTurns,
	}
}

// SaveUserMessage appends the utterance to the conversation.
func (cm *MessagesManager) SaveUserMessage(ctx context.Context, conversationID string, query string) error {
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.UserMessage(query))
}

// BuildAnswerContext returns the system prompt followed by the recent
// user/assistant messages of the conversation.
func (cm *MessagesManager) BuildAnswerContext(ctx context.Context, conversationID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}
	for _, msg := range trimTail(history.Messages, cm.maxTurns) {
		if msg == nil || msg.Content == "" {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationID string, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, conversationID, assistantMsg)
}

// SaveRanking keeps ranking as the conversation's pending export.
func (cm *MessagesManager) SaveRanking(ctx context.Context, conversationID string, ranking *model.Ranking) error {
	return cm.conversationRepo.SaveRanking(ctx, conversationID, ranking)
}

// PendingRanking returns the last ranking of the conversation, or nil.
func (cm *MessagesManager) PendingRanking(ctx context.Context, conversationID string) (*model.Ranking, error) {
	return cm.conversationRepo.LoadRanking(ctx, conversationID)
}

// ====================== Helper function ======================
// trimTail keeps the last maxTurns user/assistant pairs. maxTurns <= 0 keeps everything.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	limit := maxTurns * 2
	if maxTurns <= 0 || len(messages) <= limit {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-limit:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
