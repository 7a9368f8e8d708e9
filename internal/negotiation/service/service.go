// Package service implements the negotiation channel: the 1:1 chat
// between a project's client and an applicant, the offer sub-protocol,
// and the price lock an accepted offer places on the project.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jeevanjiji/websphere-final/internal/annotate"
	"github.com/jeevanjiji/websphere-final/internal/locker"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/store"
	"github.com/jeevanjiji/websphere-final/internal/notifications"
	"github.com/jeevanjiji/websphere-final/internal/realtime"
)

type Service struct {
	projects  *store.ProjectRepository
	apps      *store.ApplicationRepository
	chats     *store.ChatRepository
	bus       realtime.Publisher
	notifier  notifications.Dispatcher
	annotator annotate.Annotator
	locks     *locker.Keyed
}

func New(
	projects *store.ProjectRepository,
	apps *store.ApplicationRepository,
	chats *store.ChatRepository,
	bus realtime.Publisher,
	notifier notifications.Dispatcher,
	annotator annotate.Annotator,
	locks *locker.Keyed,
) *Service {
	return &Service{
		projects:  projects,
		apps:      apps,
		chats:     chats,
		bus:       bus,
		notifier:  notifier,
		annotator: annotator,
		locks:     locks,
	}
}

func chatLockKey(chatID string) string {
	return "chat:" + chatID
}

// FindOrCreateChat returns the application's chat, creating it on first
// access. Only the application's client or freelancer may open it.
func (s *Service) FindOrCreateChat(ctx context.Context, userID, applicationID string) (*domain.Chat, bool, error) {
	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, false, err
	}
	if userID != app.ClientID && userID != app.FreelancerID {
		return nil, false, domain.Forbiddenf("not a party to this application")
	}
	return s.chats.FindOrCreateForApplication(ctx, app)
}

type SendMessageInput struct {
	Type    domain.MessageType
	Content string
	File    *domain.FileDetails
	Offer   *domain.OfferDetails
}

// SendMessage appends a message to the chat. Offers are validated against
// the project's price lock, rate cap and deadline before anything is
// written. Text messages pick up sentiment and summary annotations when
// the annotator is reachable.
func (s *Service) SendMessage(ctx context.Context, userID, chatID string, in SendMessageInput) (*domain.Message, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, domain.Forbiddenf("not a participant of this chat")
	}

	msg := &domain.Message{
		ChatID:   chatID,
		SenderID: userID,
		Type:     in.Type,
		Content:  strings.TrimSpace(in.Content),
	}

	switch in.Type {
	case domain.MessageText:
		if msg.Content == "" {
			return nil, domain.Validationf("message content is required")
		}
		ann := s.annotator.Annotate(ctx, msg.Content)
		msg.Sentiment = ann.Sentiment
		msg.Summary = ann.Summary

	case domain.MessageFile:
		if in.File == nil || in.File.URL == "" {
			return nil, domain.Validationf("file details are required")
		}
		msg.File = in.File

	case domain.MessageOffer:
		if in.Offer == nil {
			return nil, domain.Validationf("offer details are required")
		}
		if err := s.validateOffer(ctx, chat, userID, in.Offer); err != nil {
			return nil, err
		}
		msg.OfferDetails = in.Offer
		msg.OfferStatus = domain.OfferPending

	default:
		return nil, domain.Validationf("unknown message type %q", in.Type)
	}

	if err := s.chats.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	s.bus.Publish(ctx, realtime.Event{
		Name:   realtime.EventNewMessage,
		ChatID: chatID,
		Data:   map[string]any{"message": msg},
	})
	s.bus.Publish(ctx, realtime.Event{
		Name:   realtime.EventMessageReceived,
		UserID: chat.Counterpart(userID),
		Data:   map[string]any{"chat_id": chatID, "message_id": msg.ID},
	})
	return msg, nil
}

// validateOffer enforces the pre-lock rules: no new offers once a price
// is agreed, the freelancer's rate stays under the cap, and the timeline
// fits the project deadline.
func (s *Service) validateOffer(ctx context.Context, chat *domain.Chat, senderID string, offer *domain.OfferDetails) error {
	if offer.ProposedRate <= 0 {
		return domain.Validationf("offer rate must be positive")
	}
	if offer.Timeline <= 0 {
		return domain.Validationf("offer timeline must be positive")
	}

	project, err := s.projects.Get(ctx, chat.ProjectID)
	if err != nil {
		return err
	}
	if project.AgreedPrice != nil {
		return domain.Validationf("price already agreed for this project")
	}
	if senderID == chat.FreelancerID {
		if maxRate := project.RateCap(); offer.ProposedRate > maxRate {
			return domain.Validationf("offer rate %.2f exceeds the project cap %.2f", offer.ProposedRate, maxRate)
		}
	}
	if time.Now().AddDate(0, 0, offer.Timeline).After(project.Deadline) {
		return domain.Validationf("offer timeline exceeds the project deadline")
	}
	return nil
}

const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// OfferResponse is the outcome of RespondToOffer.
type OfferResponse struct {
	Offer         *domain.Message     `json:"offer"`
	SystemMessage *domain.Message     `json:"system_message"`
	Project       *domain.Project     `json:"project,omitempty"`
	Application   *domain.Application `json:"application,omitempty"`
}

// RespondToOffer resolves a pending offer. Calls for the same chat are
// serialized on a keyed mutex so two near-simultaneous accepts cannot
// both win; the loser observes a non-pending offer and gets a conflict.
// Accept locks the price onto the project and promotes the pending
// application to accepted. It never awards.
func (s *Service) RespondToOffer(ctx context.Context, userID, messageID, action string) (*OfferResponse, error) {
	if action != ActionAccept && action != ActionDecline {
		return nil, domain.Validationf("action must be %q or %q", ActionAccept, ActionDecline)
	}

	offer, err := s.chats.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !offer.IsOffer() {
		return nil, domain.Validationf("message %s is not an offer", messageID)
	}

	chat, err := s.chats.Get(ctx, offer.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, domain.Forbiddenf("not a participant of this chat")
	}
	if offer.SenderID == userID {
		return nil, domain.Conflictf("cannot respond to your own offer")
	}

	unlock := s.locks.Lock(chatLockKey(chat.ID))
	defer unlock()

	if action == ActionAccept {
		return s.acceptOffer(ctx, chat, userID, messageID)
	}
	return s.declineOffer(ctx, chat, userID, messageID)
}

func (s *Service) acceptOffer(ctx context.Context, chat *domain.Chat, userID, messageID string) (*OfferResponse, error) {
	now := time.Now().UTC()

	// Lock the price before touching offer state: a race with the same
	// project's other chats must never leave an accepted offer whose
	// terms lost the price lock.
	pending, err := s.chats.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !pending.OfferCanTransitionTo(domain.OfferAccepted) {
		return nil, domain.Conflictf("offer already %s", pending.OfferStatus)
	}

	terms := pending.OfferDetails
	project, err := s.projects.Update(ctx, chat.ProjectID, func(p *domain.Project) error {
		if p.AgreedPrice != nil {
			return domain.Conflictf("price already agreed for this project")
		}
		rate := terms.ProposedRate
		p.AgreedPrice = &rate
		p.FinalRate = &rate
		p.BudgetAmount = rate
		p.PriceLockedAt = &now
		p.TotalProjectValue = domain.TotalValue(rate)
		p.NegotiationHistory = append(p.NegotiationHistory, domain.NegotiationEntry{
			MessageID: messageID,
			Rate:      rate,
			Timeline:  terms.Timeline,
			By:        userID,
			Status:    domain.OfferAccepted,
			At:        now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	accepted, err := s.chats.UpdateOffer(ctx, messageID, func(m *domain.Message) error {
		if !m.OfferCanTransitionTo(domain.OfferAccepted) {
			return domain.Conflictf("offer already %s", m.OfferStatus)
		}
		m.OfferStatus = domain.OfferAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.declineCompetitors(ctx, chat.ID, messageID)

	app := s.promoteApplication(ctx, chat.ApplicationID, terms)

	sysMsg := s.appendSystemMessage(ctx, chat.ID,
		fmt.Sprintf("Offer accepted: $%.2f, %d-day timeline. Price is now locked.", terms.ProposedRate, terms.Timeline))

	s.publishOfferResponse(ctx, chat, accepted, userID)
	s.notifier.Create(ctx, notifications.Notification{
		UserID:    accepted.SenderID,
		Type:      notifications.TypeOfferResponse,
		Title:     "Your offer was accepted",
		ProjectID: chat.ProjectID,
		Data:      map[string]any{"chat_id": chat.ID, "message_id": messageID},
	})

	return &OfferResponse{Offer: accepted, SystemMessage: sysMsg, Project: project, Application: app}, nil
}

func (s *Service) declineOffer(ctx context.Context, chat *domain.Chat, userID, messageID string) (*OfferResponse, error) {
	now := time.Now().UTC()

	declined, err := s.chats.UpdateOffer(ctx, messageID, func(m *domain.Message) error {
		if !m.OfferCanTransitionTo(domain.OfferDeclined) {
			return domain.Conflictf("offer already %s", m.OfferStatus)
		}
		m.OfferStatus = domain.OfferDeclined
		return nil
	})
	if err != nil {
		return nil, err
	}

	terms := declined.OfferDetails
	project, err := s.projects.Update(ctx, chat.ProjectID, func(p *domain.Project) error {
		p.NegotiationHistory = append(p.NegotiationHistory, domain.NegotiationEntry{
			MessageID: messageID,
			Rate:      terms.ProposedRate,
			Timeline:  terms.Timeline,
			By:        userID,
			Status:    domain.OfferDeclined,
			At:        now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sysMsg := s.appendSystemMessage(ctx, chat.ID,
		fmt.Sprintf("Offer of $%.2f declined.", terms.ProposedRate))

	s.publishOfferResponse(ctx, chat, declined, userID)
	s.notifier.Create(ctx, notifications.Notification{
		UserID:    declined.SenderID,
		Type:      notifications.TypeOfferResponse,
		Title:     "Your offer was declined",
		ProjectID: chat.ProjectID,
		Data:      map[string]any{"chat_id": chat.ID, "message_id": messageID},
	})

	return &OfferResponse{Offer: declined, SystemMessage: sysMsg, Project: project}, nil
}

// declineCompetitors force-declines every other pending offer in the
// chat. Individual failures are logged; the accepted offer already won.
func (s *Service) declineCompetitors(ctx context.Context, chatID, winnerID string) {
	pending, err := s.chats.PendingOffers(ctx, chatID)
	if err != nil {
		log.Printf("[negotiation] list pending offers in chat %s: %v", chatID, err)
		return
	}
	for _, p := range pending {
		if p.ID == winnerID {
			continue
		}
		_, err := s.chats.UpdateOffer(ctx, p.ID, func(m *domain.Message) error {
			if m.OfferStatus != domain.OfferPending {
				return nil
			}
			m.OfferStatus = domain.OfferDeclined
			return nil
		})
		if err != nil {
			log.Printf("[negotiation] force-decline offer %s: %v", p.ID, err)
		}
	}
}

// promoteApplication moves a still-pending application to accepted after
// a price lock and rewrites its proposed terms to the agreed ones.
// Best-effort: an already-finalized application is left alone and a
// storage failure only logs.
func (s *Service) promoteApplication(ctx context.Context, applicationID string, terms *domain.OfferDetails) *domain.Application {
	app, err := s.apps.Update(ctx, applicationID, func(a *domain.Application) error {
		if a.Status != domain.ApplicationPending && a.Status != domain.ApplicationAccepted {
			return nil
		}
		a.ProposedRate = terms.ProposedRate
		a.ProposedTimeline = terms.Timeline
		if a.Status == domain.ApplicationPending {
			a.Status = domain.ApplicationAccepted
		}
		return nil
	})
	if err != nil {
		log.Printf("[negotiation] promote application %s: %v", applicationID, err)
		return nil
	}
	return app
}

func (s *Service) appendSystemMessage(ctx context.Context, chatID, content string) *domain.Message {
	msg := &domain.Message{ChatID: chatID, Type: domain.MessageSystem, Content: content}
	if err := s.chats.Append(ctx, msg); err != nil {
		log.Printf("[negotiation] append system message in chat %s: %v", chatID, err)
		return nil
	}
	s.bus.Publish(ctx, realtime.Event{
		Name:   realtime.EventNewMessage,
		ChatID: chatID,
		Data:   map[string]any{"message": msg},
	})
	return msg
}

func (s *Service) publishOfferResponse(ctx context.Context, chat *domain.Chat, offer *domain.Message, responderID string) {
	s.bus.Publish(ctx, realtime.Event{
		Name:   realtime.EventOfferResponse,
		ChatID: chat.ID,
		Data: map[string]any{
			"message_id":   offer.ID,
			"offer_status": offer.OfferStatus,
			"responded_by": responderID,
		},
	})
}

// ListMessages returns a page of the chat's history. Restricted to
// participants.
func (s *Service) ListMessages(ctx context.Context, userID, chatID string, page, limit int) ([]domain.Message, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, domain.Forbiddenf("not a participant of this chat")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.chats.ListMessages(ctx, chatID, page, limit)
}
