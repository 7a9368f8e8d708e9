package domain

import "time"

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationAwarded   ApplicationStatus = "awarded"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// MaxActiveEngagements caps how many applications a freelancer may hold
// in accepted or awarded state at the same time.
const MaxActiveEngagements = 5

// applicationTransitions is the legal transition table. awarded, rejected
// and withdrawn are terminal.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:   {ApplicationAccepted, ApplicationAwarded, ApplicationRejected, ApplicationWithdrawn},
	ApplicationAccepted:  {ApplicationAwarded, ApplicationRejected},
	ApplicationAwarded:   {},
	ApplicationRejected:  {},
	ApplicationWithdrawn: {},
}

// Application is a freelancer's proposal to work on a project. Its
// lifecycle is independent of the project's; it is never deleted, only
// moved to a terminal status.
type Application struct {
	ID               string            `json:"id"`
	ProjectID        string            `json:"project_id"`
	FreelancerID     string            `json:"freelancer_id"`
	ClientID         string            `json:"client_id"`
	CoverLetter      string            `json:"cover_letter,omitempty"`
	ProposedRate     float64           `json:"proposed_rate"`
	ProposedTimeline int               `json:"proposed_timeline_days"`
	Status           ApplicationStatus `json:"status"`
	RespondedAt      *time.Time        `json:"responded_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// CanTransitionTo reports whether the application may move to next.
func (a *Application) CanTransitionTo(next ApplicationStatus) bool {
	for _, s := range applicationTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// Active reports whether the application still awaits a final outcome.
func (a *Application) Active() bool {
	return a.Status == ApplicationPending || a.Status == ApplicationAccepted
}

// Engaged reports whether the application counts against the freelancer's
// concurrent engagement cap.
func (a *Application) Engaged() bool {
	return a.Status == ApplicationAccepted || a.Status == ApplicationAwarded
}
