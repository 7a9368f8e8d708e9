package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
)

// ChatRepository persists chat and message documents. A chat is keyed to
// its application through a pointer key claimed with SETNX, which makes
// find-or-create idempotent without cross-document transactions.
type ChatRepository struct {
	client *redis.Client
}

func NewChatRepository(client *redis.Client) *ChatRepository {
	return &ChatRepository{client: client}
}

func chatKey(id string) string {
	return chatKeyPrefix + id
}

func messageKey(id string) string {
	return messageKeyPrefix + id
}

func applicationChatKey(applicationID string) string {
	return applicationKeyPrefix + applicationID + ":chat"
}

func chatMessagesKey(chatID string) string {
	return chatKeyPrefix + chatID + ":messages"
}

func chatSeqKey(chatID string) string {
	return chatKeyPrefix + chatID + ":seq"
}

func chatPendingOffersKey(chatID string) string {
	return chatKeyPrefix + chatID + ":pending_offers"
}

// FindOrCreateForApplication returns the 1:1 chat for the application,
// creating it on first contact. The boolean reports whether this call
// created it.
func (r *ChatRepository) FindOrCreateForApplication(ctx context.Context, app *domain.Application) (*domain.Chat, bool, error) {
	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:            uuid.New().String(),
		ApplicationID: app.ID,
		ProjectID:     app.ProjectID,
		ClientID:      app.ClientID,
		FreelancerID:  app.FreelancerID,
		Status:        domain.ChatActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := putDoc(ctx, r.client, chatKey(chat.ID), chat); err != nil {
		return nil, false, domain.Dependencyf("store chat: %v", err)
	}

	claimed, err := r.client.SetNX(ctx, applicationChatKey(app.ID), chat.ID, 0).Result()
	if err != nil {
		return nil, false, domain.Dependencyf("claim chat for application %s: %v", app.ID, err)
	}
	if claimed {
		return chat, true, nil
	}

	// Lost the claim: discard our candidate and load the winner.
	_ = r.client.Del(ctx, chatKey(chat.ID)).Err()
	winnerID, err := r.client.Get(ctx, applicationChatKey(app.ID)).Result()
	if err != nil {
		return nil, false, domain.Dependencyf("resolve chat for application %s: %v", app.ID, err)
	}
	existing, err := r.Get(ctx, winnerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindByApplication returns the chat linked to the application, if any.
func (r *ChatRepository) FindByApplication(ctx context.Context, applicationID string) (*domain.Chat, error) {
	chatID, err := r.client.Get(ctx, applicationChatKey(applicationID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NotFoundf("no chat for application %s", applicationID)
	}
	if err != nil {
		return nil, domain.Dependencyf("resolve chat: %v", err)
	}
	return r.Get(ctx, chatID)
}

// Get loads a chat by ID.
func (r *ChatRepository) Get(ctx context.Context, id string) (*domain.Chat, error) {
	c, err := getDoc[domain.Chat](ctx, r.client, chatKey(id))
	if errors.Is(err, errDocMissing) {
		return nil, domain.NotFoundf("chat %s not found", id)
	}
	if err != nil {
		return nil, domain.Dependencyf("load chat: %v", err)
	}
	return c, nil
}

// IsParticipant reports whether userID is a party to the chat. Used by
// the realtime hub to authorize room joins.
func (r *ChatRepository) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	c, err := r.Get(ctx, chatID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return c.HasParticipant(userID), nil
}

// Append assigns the next per-chat sequence number to the message and
// persists it. Offer messages enter the pending-offer index.
func (r *ChatRepository) Append(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	seq, err := r.client.Incr(ctx, chatSeqKey(m.ChatID)).Result()
	if err != nil {
		return domain.Dependencyf("assign message sequence: %v", err)
	}
	m.Seq = seq

	data, err := marshalDoc(m)
	if err != nil {
		return domain.Dependencyf("store message: %v", err)
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, messageKey(m.ID), data, 0)
	pipe.ZAdd(ctx, chatMessagesKey(m.ChatID), redis.Z{Score: float64(seq), Member: m.ID})
	if m.Type == domain.MessageOffer && m.OfferStatus == domain.OfferPending {
		pipe.SAdd(ctx, chatPendingOffersKey(m.ChatID), m.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Dependencyf("store message: %v", err)
	}

	// Touch the chat last-activity marker; failure is harmless.
	_, _ = r.UpdateChat(ctx, m.ChatID, func(c *domain.Chat) error {
		at := m.CreatedAt
		c.LastMessageAt = &at
		return nil
	})
	return nil
}

// GetMessage loads a message by ID.
func (r *ChatRepository) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	m, err := getDoc[domain.Message](ctx, r.client, messageKey(id))
	if errors.Is(err, errDocMissing) {
		return nil, domain.NotFoundf("message %s not found", id)
	}
	if err != nil {
		return nil, domain.Dependencyf("load message: %v", err)
	}
	return m, nil
}

// UpdateChat applies mutate to the chat document atomically.
func (r *ChatRepository) UpdateChat(ctx context.Context, id string, mutate func(*domain.Chat) error) (*domain.Chat, error) {
	c, err := mutateDoc(ctx, r.client, chatKey(id), func(c *domain.Chat) error {
		if err := mutate(c); err != nil {
			return err
		}
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, errDocMissing) {
			return nil, domain.NotFoundf("chat %s not found", id)
		}
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, domain.Dependencyf("update chat: %v", err)
	}
	return c, nil
}

// UpdateOffer applies mutate to an offer message atomically and keeps the
// pending-offer index in step with the resulting status.
func (r *ChatRepository) UpdateOffer(ctx context.Context, id string, mutate func(*domain.Message) error) (*domain.Message, error) {
	m, err := mutateDoc(ctx, r.client, messageKey(id), mutate)
	if err != nil {
		if errors.Is(err, errDocMissing) {
			return nil, domain.NotFoundf("message %s not found", id)
		}
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, domain.Dependencyf("update offer: %v", err)
	}
	if m.Type == domain.MessageOffer && m.OfferStatus != domain.OfferPending {
		_ = r.client.SRem(ctx, chatPendingOffersKey(m.ChatID), m.ID).Err()
	}
	return m, nil
}

// PendingOffers returns the chat's offer messages still awaiting a
// response. The index may briefly run ahead of a resolved offer, so each
// entry is re-checked against the document.
func (r *ChatRepository) PendingOffers(ctx context.Context, chatID string) ([]domain.Message, error) {
	ids, err := r.client.SMembers(ctx, chatPendingOffersKey(chatID)).Result()
	if err != nil {
		return nil, domain.Dependencyf("list pending offers: %v", err)
	}
	out := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		m, err := getDoc[domain.Message](ctx, r.client, messageKey(id))
		if errors.Is(err, errDocMissing) {
			continue
		}
		if err != nil {
			return nil, domain.Dependencyf("list pending offers: %v", err)
		}
		if m.Type == domain.MessageOffer && m.OfferStatus == domain.OfferPending {
			out = append(out, *m)
		}
	}
	return out, nil
}

// ListMessages returns one page of the chat's messages in sequence order.
// Page 1 is the most recent page.
func (r *ChatRepository) ListMessages(ctx context.Context, chatID string, page, limit int) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	total, err := r.client.ZCard(ctx, chatMessagesKey(chatID)).Result()
	if err != nil {
		return nil, domain.Dependencyf("count messages: %v", err)
	}
	stop := total - int64(page-1)*int64(limit) - 1
	if stop < 0 {
		return []domain.Message{}, nil
	}
	start := stop - int64(limit) + 1
	if start < 0 {
		start = 0
	}

	ids, err := r.client.ZRange(ctx, chatMessagesKey(chatID), start, stop).Result()
	if err != nil {
		return nil, domain.Dependencyf("list messages: %v", err)
	}
	out := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		m, err := getDoc[domain.Message](ctx, r.client, messageKey(id))
		if errors.Is(err, errDocMissing) {
			continue
		}
		if err != nil {
			return nil, domain.Dependencyf("list messages: %v", err)
		}
		out = append(out, *m)
	}
	return out, nil
}
