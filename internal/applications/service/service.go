// Package service implements the application lifecycle: a freelancer
// submits a proposal against an open project, the client responds, the
// freelancer may withdraw while the proposal is still pending.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeevanjiji/websphere-final/internal/award"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/store"
	"github.com/jeevanjiji/websphere-final/internal/notifications"
	"github.com/jeevanjiji/websphere-final/internal/realtime"
)

// Awarder runs the award saga when a client accepts an application
// directly from the application list.
type Awarder interface {
	Award(ctx context.Context, clientID, applicationID string) (*award.Result, error)
}

type Service struct {
	projects *store.ProjectRepository
	apps     *store.ApplicationRepository
	awarder  Awarder
	bus      realtime.Publisher
	notifier notifications.Dispatcher
}

func New(
	projects *store.ProjectRepository,
	apps *store.ApplicationRepository,
	awarder Awarder,
	bus realtime.Publisher,
	notifier notifications.Dispatcher,
) *Service {
	return &Service{
		projects: projects,
		apps:     apps,
		awarder:  awarder,
		bus:      bus,
		notifier: notifier,
	}
}

type SubmitInput struct {
	ProjectID        string
	CoverLetter      string
	ProposedRate     float64
	ProposedTimeline int
}

// Submit files a new pending application. All checks run before the
// document is written, so a rejected submission leaves no trace.
func (s *Service) Submit(ctx context.Context, freelancerID string, in SubmitInput) (*domain.Application, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return nil, domain.Validationf("project id is required")
	}
	if in.ProposedRate <= 0 {
		return nil, domain.Validationf("proposed rate must be positive")
	}
	if in.ProposedTimeline <= 0 {
		return nil, domain.Validationf("proposed timeline must be positive")
	}

	project, err := s.projects.Get(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != domain.ProjectOpen {
		return nil, domain.Validationf("project is not accepting applications")
	}
	if project.ClientID == freelancerID {
		return nil, domain.Validationf("cannot apply to your own project")
	}
	if maxRate := project.RateCap(); in.ProposedRate > maxRate {
		return nil, domain.Validationf("proposed rate %.2f exceeds the project cap %.2f", in.ProposedRate, maxRate)
	}
	if time.Now().AddDate(0, 0, in.ProposedTimeline).After(project.Deadline) {
		return nil, domain.Validationf("proposed timeline exceeds the project deadline")
	}

	mine, err := s.apps.ListByFreelancer(ctx, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	engaged := 0
	for _, a := range mine {
		if a.ProjectID == in.ProjectID && a.Status != domain.ApplicationWithdrawn {
			return nil, domain.Validationf("you have already applied to this project")
		}
		if a.Engaged() {
			engaged++
		}
	}
	if engaged >= domain.MaxActiveEngagements {
		return nil, domain.Validationf("active engagement limit of %d reached", domain.MaxActiveEngagements)
	}

	app := &domain.Application{
		ProjectID:        in.ProjectID,
		FreelancerID:     freelancerID,
		ClientID:         project.ClientID,
		CoverLetter:      strings.TrimSpace(in.CoverLetter),
		ProposedRate:     in.ProposedRate,
		ProposedTimeline: in.ProposedTimeline,
		Status:           domain.ApplicationPending,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	s.notifier.Create(ctx, notifications.Notification{
		UserID:    project.ClientID,
		Type:      notifications.TypeApplicationCreated,
		Title:     "New application received",
		Body:      fmt.Sprintf("A freelancer applied to %q.", project.Title),
		ProjectID: project.ID,
		Data:      map[string]any{"application_id": app.ID},
	})
	s.bus.Publish(ctx, realtime.Event{
		Name:   realtime.EventNotification,
		UserID: project.ClientID,
		Data: map[string]any{
			"type":           notifications.TypeApplicationCreated,
			"project_id":     project.ID,
			"application_id": app.ID,
		},
	})
	return app, nil
}

const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// RespondResult is what a client response produced. Award is set only
// when the action was accept.
type RespondResult struct {
	Application *domain.Application `json:"application"`
	Award       *award.Result       `json:"award,omitempty"`
}

// Respond lets the project's client accept or reject an application.
// Accept hands off to the award coordinator; the application list is the
// client's award surface.
func (s *Service) Respond(ctx context.Context, clientID, applicationID, action string) (*RespondResult, error) {
	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ClientID != clientID {
		return nil, domain.Forbiddenf("only the project's client can respond")
	}

	switch action {
	case ActionAccept:
		res, err := s.awarder.Award(ctx, clientID, applicationID)
		if err != nil {
			return nil, err
		}
		return &RespondResult{Application: res.Application, Award: res}, nil

	case ActionReject:
		if !app.Active() {
			return nil, domain.Conflictf("application already finalized as %s", app.Status)
		}
		now := time.Now().UTC()
		updated, err := s.apps.Update(ctx, applicationID, func(a *domain.Application) error {
			if !a.CanTransitionTo(domain.ApplicationRejected) {
				return domain.Conflictf("application already finalized as %s", a.Status)
			}
			a.Status = domain.ApplicationRejected
			a.RespondedAt = &now
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.notifier.Create(ctx, notifications.Notification{
			UserID:    updated.FreelancerID,
			Type:      notifications.TypeApplicationRejected,
			Title:     "Application not selected",
			ProjectID: updated.ProjectID,
		})
		s.bus.Publish(ctx, realtime.Event{
			Name:   realtime.EventNotification,
			UserID: updated.FreelancerID,
			Data: map[string]any{
				"type":           notifications.TypeApplicationRejected,
				"application_id": updated.ID,
			},
		})
		return &RespondResult{Application: updated}, nil

	default:
		return nil, domain.Validationf("action must be %q or %q", ActionAccept, ActionReject)
	}
}

// Withdraw retracts a pending application. Anything past pending has
// already been answered and stays on the record.
func (s *Service) Withdraw(ctx context.Context, freelancerID, applicationID string) (*domain.Application, error) {
	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.FreelancerID != freelancerID {
		return nil, domain.Forbiddenf("only the applicant can withdraw")
	}
	if app.Status != domain.ApplicationPending {
		return nil, domain.Conflictf("only pending applications can be withdrawn")
	}
	return s.apps.Update(ctx, applicationID, func(a *domain.Application) error {
		if a.Status != domain.ApplicationPending {
			return domain.Conflictf("only pending applications can be withdrawn")
		}
		a.Status = domain.ApplicationWithdrawn
		return nil
	})
}

// ListMine returns the freelancer's applications, newest first, with an
// optional status filter and page/limit pagination.
func (s *Service) ListMine(ctx context.Context, freelancerID, status string, page, limit int) ([]domain.Application, error) {
	if status != "" {
		switch domain.ApplicationStatus(status) {
		case domain.ApplicationPending, domain.ApplicationAccepted, domain.ApplicationAwarded,
			domain.ApplicationRejected, domain.ApplicationWithdrawn:
		default:
			return nil, domain.Validationf("unknown status %q", status)
		}
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	all, err := s.apps.ListByFreelancer(ctx, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	filtered := all[:0:0]
	for _, a := range all {
		if status == "" || a.Status == domain.ApplicationStatus(status) {
			filtered = append(filtered, a)
		}
	}
	start := (page - 1) * limit
	if start >= len(filtered) {
		return []domain.Application{}, nil
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

// ListForProject returns every application filed against the project.
// Restricted to the project's client.
func (s *Service) ListForProject(ctx context.Context, clientID, projectID string) ([]domain.Application, error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, domain.Forbiddenf("only the project's client can list its applications")
	}
	return s.apps.ListByProject(ctx, projectID)
}
