// Package award orchestrates the multi-document side effects of awarding
// a project to one application. The store offers per-document atomic
// writes only, so the award runs as an ordered best-effort saga: the
// invariant-bearing steps (application, project, sibling rejection) are
// all-or-abort, the convenience steps (chat announcement, workspace,
// events) are independently retryable and surfaced as flags.
package award

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jeevanjiji/websphere-final/internal/locker"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/store"
	"github.com/jeevanjiji/websphere-final/internal/notifications"
	"github.com/jeevanjiji/websphere-final/internal/realtime"
)

// Result reports what the award produced. ChatCreated and
// WorkspaceCreated are false both when the resource already existed and
// when its creation failed; a failed creation also leaves the ID empty
// and queues a repair.
type Result struct {
	Application      *domain.Application `json:"application"`
	ChatID           string              `json:"chat_id,omitempty"`
	WorkspaceID      string              `json:"workspace_id,omitempty"`
	ChatCreated      bool                `json:"chat_created"`
	WorkspaceCreated bool                `json:"workspace_created"`
}

type Coordinator struct {
	projects   *store.ProjectRepository
	apps       *store.ApplicationRepository
	chats      *store.ChatRepository
	workspaces *store.WorkspaceRepository
	repairs    *store.RepairQueue
	bus        realtime.Publisher
	notifier   notifications.Dispatcher
	locks      *locker.Keyed
}

func NewCoordinator(
	projects *store.ProjectRepository,
	apps *store.ApplicationRepository,
	chats *store.ChatRepository,
	workspaces *store.WorkspaceRepository,
	repairs *store.RepairQueue,
	bus realtime.Publisher,
	notifier notifications.Dispatcher,
	locks *locker.Keyed,
) *Coordinator {
	return &Coordinator{
		projects:   projects,
		apps:       apps,
		chats:      chats,
		workspaces: workspaces,
		repairs:    repairs,
		bus:        bus,
		notifier:   notifier,
		locks:      locks,
	}
}

func projectLockKey(projectID string) string {
	return "project:" + projectID
}

// Award selects the application as the project's winner. Two clients
// racing to award different applications for the same project serialize
// on the project lock; the loser observes the awarded project and gets a
// conflict. Re-awarding an already-awarded project is always a conflict,
// never a silent repeat.
func (c *Coordinator) Award(ctx context.Context, clientID, applicationID string) (*Result, error) {
	app, err := c.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(projectLockKey(app.ProjectID))
	defer unlock()

	// Reload under the lock: the state may have moved while we waited.
	app, err = c.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	project, err := c.projects.Get(ctx, app.ProjectID)
	if err != nil {
		return nil, err
	}

	if project.ClientID != clientID {
		return nil, domain.Forbiddenf("only the project's client can award it")
	}
	if !app.Active() {
		return nil, domain.Conflictf("application already finalized as %s", app.Status)
	}
	switch project.Status {
	case domain.ProjectAwarded, domain.ProjectInProgress, domain.ProjectCompleted:
		return nil, domain.Conflictf("project already %s", project.Status)
	}

	now := time.Now().UTC()

	// Step 1: the application becomes the winner.
	prevStatus := app.Status
	awardedApp, err := retryOnce(func() (*domain.Application, error) {
		return c.apps.Update(ctx, applicationID, func(a *domain.Application) error {
			if !a.CanTransitionTo(domain.ApplicationAwarded) {
				return domain.Conflictf("application already finalized as %s", a.Status)
			}
			a.Status = domain.ApplicationAwarded
			a.RespondedAt = &now
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Step 2: the project flips to awarded. On failure the application
	// write is compensated so the caller sees the original state.
	finalRate := awardedApp.ProposedRate
	if project.AgreedPrice != nil {
		finalRate = *project.AgreedPrice
	}
	_, err = retryOnce(func() (*domain.Project, error) {
		return c.projects.Update(ctx, app.ProjectID, func(p *domain.Project) error {
			if !p.CanTransitionTo(domain.ProjectAwarded) {
				return domain.Conflictf("project already %s", p.Status)
			}
			p.Status = domain.ProjectAwarded
			p.AwardedTo = &awardedApp.FreelancerID
			p.AwardedApplication = &awardedApp.ID
			p.FinalRate = &finalRate
			timeline := awardedApp.ProposedTimeline
			p.FinalTimeline = &timeline
			p.AwardedAt = &now
			if p.AgreedPrice != nil {
				p.BudgetAmount = *p.AgreedPrice
			}
			return nil
		})
	})
	if err != nil {
		c.compensateApplication(ctx, applicationID, prevStatus)
		return nil, err
	}

	// Step 3: every competing application in flight is rejected. A
	// sibling that cannot be written is logged, never awarded, and gets
	// swept up by a later award attempt's conflict or manual repair.
	c.rejectSiblings(ctx, app.ProjectID, applicationID, now)

	// Steps 4-6 are conveniences: their failure is reported, queued for
	// repair and never rolls back the award.
	result := &Result{Application: awardedApp}
	c.runConveniences(ctx, awardedApp, finalRate, result)

	c.publishAwarded(ctx, awardedApp, finalRate, result)
	return result, nil
}

// retryOnce re-invokes op one time when the store reports a transient
// dependency failure. Conflict and validation outcomes pass through.
func retryOnce[T any](op func() (T, error)) (T, error) {
	v, err := op()
	if err != nil && domain.IsKind(err, domain.KindDependency) {
		return op()
	}
	return v, err
}

// compensateApplication restores the application's pre-award status after
// a failed project write. Best-effort: a failure here is logged and the
// document is left for the conflict checks to catch.
func (c *Coordinator) compensateApplication(ctx context.Context, applicationID string, prev domain.ApplicationStatus) {
	_, err := c.apps.Update(ctx, applicationID, func(a *domain.Application) error {
		a.Status = prev
		a.RespondedAt = nil
		return nil
	})
	if err != nil {
		log.Printf("[award] compensate application %s: %v", applicationID, err)
	}
}

func (c *Coordinator) rejectSiblings(ctx context.Context, projectID, winnerID string, now time.Time) {
	siblings, err := c.apps.ListByProject(ctx, projectID)
	if err != nil {
		log.Printf("[award] list siblings for project %s: %v", projectID, err)
		return
	}
	for _, sib := range siblings {
		if sib.ID == winnerID || !sib.Active() {
			continue
		}
		sibID := sib.ID
		rejected, err := retryOnce(func() (*domain.Application, error) {
			return c.apps.Update(ctx, sibID, func(a *domain.Application) error {
				if !a.CanTransitionTo(domain.ApplicationRejected) {
					return domain.Conflictf("application already finalized as %s", a.Status)
				}
				a.Status = domain.ApplicationRejected
				a.RespondedAt = &now
				return nil
			})
		})
		if err != nil {
			if !domain.IsKind(err, domain.KindConflict) {
				log.Printf("[award] reject sibling %s: %v", sibID, err)
			}
			continue
		}
		c.notifier.Create(ctx, notifications.Notification{
			UserID:    rejected.FreelancerID,
			Type:      notifications.TypeApplicationRejected,
			Title:     "Application not selected",
			ProjectID: projectID,
		})
	}
}

func (c *Coordinator) runConveniences(ctx context.Context, app *domain.Application, finalRate float64, result *Result) {
	needRepair := false

	chat, created, err := c.chats.FindOrCreateForApplication(ctx, app)
	if err != nil {
		log.Printf("[award] chat for application %s: %v", app.ID, err)
		needRepair = true
	} else {
		result.ChatID = chat.ID
		result.ChatCreated = created
		if err := c.announceAward(ctx, chat.ID, app, finalRate); err != nil {
			log.Printf("[award] announce in chat %s: %v", chat.ID, err)
			needRepair = true
		}
	}

	ws, created, err := c.workspaces.FindOrCreateForProject(ctx, app.ProjectID, app.ClientID, app.FreelancerID, app.ID)
	if err != nil {
		log.Printf("[award] workspace for project %s: %v", app.ProjectID, err)
		needRepair = true
	} else {
		result.WorkspaceID = ws.ID
		result.WorkspaceCreated = created
	}

	if needRepair {
		if err := c.repairs.Add(ctx, app.ProjectID); err != nil {
			log.Printf("[award] queue repair for project %s: %v", app.ProjectID, err)
		}
	}
}

func (c *Coordinator) announceAward(ctx context.Context, chatID string, app *domain.Application, finalRate float64) error {
	msg := &domain.Message{
		ChatID:  chatID,
		Type:    domain.MessageSystem,
		Content: awardAnnouncement(finalRate, app.ProposedTimeline),
	}
	if err := c.chats.Append(ctx, msg); err != nil {
		return err
	}
	c.bus.Publish(ctx, realtime.Event{
		Name:   realtime.EventNewMessage,
		ChatID: chatID,
		Data:   map[string]any{"message": msg},
	})
	return nil
}

func awardAnnouncement(rate float64, timelineDays int) string {
	return fmt.Sprintf("Project awarded at $%.2f with a %d-day timeline.", rate, timelineDays)
}

func (c *Coordinator) publishAwarded(ctx context.Context, app *domain.Application, finalRate float64, result *Result) {
	c.bus.Publish(ctx, realtime.Event{
		Name: realtime.EventProjectStatusChange,
		Data: map[string]any{
			"project_id": app.ProjectID,
			"status":     string(domain.ProjectAwarded),
			"awarded_to": app.FreelancerID,
		},
	})
	c.bus.Publish(ctx, realtime.Event{
		Name:   realtime.EventNotification,
		UserID: app.FreelancerID,
		Data: map[string]any{
			"type":       notifications.TypeApplicationAwarded,
			"project_id": app.ProjectID,
		},
	})
	c.notifier.Create(ctx, notifications.Notification{
		UserID:    app.FreelancerID,
		Type:      notifications.TypeApplicationAwarded,
		Title:     "You won the project",
		Body:      awardAnnouncement(finalRate, app.ProposedTimeline),
		ProjectID: app.ProjectID,
		Data:      map[string]any{"workspace_id": result.WorkspaceID, "chat_id": result.ChatID},
	})
}

// Repair re-runs the idempotent convenience steps for projects whose
// award completed but whose chat or workspace creation failed. Invoked
// by the cron sweeper.
func (c *Coordinator) Repair(ctx context.Context) {
	ids, err := c.repairs.Members(ctx)
	if err != nil {
		log.Printf("[award] repair sweep: %v", err)
		return
	}
	for _, projectID := range ids {
		if c.repairProject(ctx, projectID) {
			if err := c.repairs.Remove(ctx, projectID); err != nil {
				log.Printf("[award] dequeue repair %s: %v", projectID, err)
			}
		}
	}
}

func (c *Coordinator) repairProject(ctx context.Context, projectID string) bool {
	project, err := c.projects.Get(ctx, projectID)
	if err != nil {
		// A vanished project has nothing left to repair.
		return domain.IsKind(err, domain.KindNotFound)
	}
	if project.Status != domain.ProjectAwarded || project.AwardedApplication == nil {
		return true
	}
	app, err := c.apps.Get(ctx, *project.AwardedApplication)
	if err != nil {
		return false
	}

	finalRate := app.ProposedRate
	if project.AgreedPrice != nil {
		finalRate = *project.AgreedPrice
	}

	ok := true
	chat, created, err := c.chats.FindOrCreateForApplication(ctx, app)
	if err != nil {
		log.Printf("[award] repair chat for project %s: %v", projectID, err)
		ok = false
	} else if created {
		// Only a freshly created chat gets the announcement again, so
		// repeated sweeps never duplicate it.
		if err := c.announceAward(ctx, chat.ID, app, finalRate); err != nil {
			log.Printf("[award] repair announce for project %s: %v", projectID, err)
			ok = false
		}
	}

	if _, _, err := c.workspaces.FindOrCreateForProject(ctx, projectID, app.ClientID, app.FreelancerID, app.ID); err != nil {
		log.Printf("[award] repair workspace for project %s: %v", projectID, err)
		ok = false
	}
	return ok
}
