package domain

import "time"

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "open"
	ProjectAwarded    ProjectStatus = "awarded"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

type BudgetType string

const (
	BudgetFixed  BudgetType = "fixed"
	BudgetHourly BudgetType = "hourly"
)

const (
	// RateCapMultiplier bounds a freelancer's proposed rate relative to
	// the project budget. Exactly the cap is accepted, above it is not.
	RateCapMultiplier = 1.20

	fixedServiceCharge = 50.0
	serviceChargeRate  = 0.10
)

// projectStatusRank orders project statuses; transitions only move forward.
var projectStatusRank = map[ProjectStatus]int{
	ProjectOpen:       0,
	ProjectAwarded:    1,
	ProjectInProgress: 2,
	ProjectCompleted:  3,
	ProjectCancelled:  3,
}

// NegotiationEntry is an append-only record of an offer outcome.
type NegotiationEntry struct {
	MessageID string      `json:"message_id"`
	Rate      float64     `json:"rate"`
	Timeline  int         `json:"timeline_days"`
	By        string      `json:"by"`
	Status    OfferStatus `json:"status"`
	At        time.Time   `json:"at"`
}

// Project is the client's posting. AgreedPrice is set exactly once by an
// accepted offer and never overwritten with a different value.
type Project struct {
	ID                 string             `json:"id"`
	ClientID           string             `json:"client_id"`
	Title              string             `json:"title"`
	Description        string             `json:"description,omitempty"`
	BudgetAmount       float64            `json:"budget_amount"`
	BudgetType         BudgetType         `json:"budget_type"`
	Deadline           time.Time          `json:"deadline"`
	Status             ProjectStatus      `json:"status"`
	AgreedPrice        *float64           `json:"agreed_price,omitempty"`
	FinalRate          *float64           `json:"final_rate,omitempty"`
	FinalTimeline      *int               `json:"final_timeline_days,omitempty"`
	PriceLockedAt      *time.Time         `json:"price_locked_at,omitempty"`
	TotalProjectValue  float64            `json:"total_project_value,omitempty"`
	AwardedTo          *string            `json:"awarded_to,omitempty"`
	AwardedApplication *string            `json:"awarded_application,omitempty"`
	AwardedAt          *time.Time         `json:"awarded_at,omitempty"`
	NegotiationHistory []NegotiationEntry `json:"negotiation_history,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// RateCap returns the maximum rate a freelancer may propose for this project.
func (p *Project) RateCap() float64 {
	return p.BudgetAmount * RateCapMultiplier
}

// CanTransitionTo reports whether the project status may move to next.
// Statuses only move forward; awarded never reopens.
func (p *Project) CanTransitionTo(next ProjectStatus) bool {
	cur, ok := projectStatusRank[p.Status]
	if !ok {
		return false
	}
	n, ok := projectStatusRank[next]
	if !ok {
		return false
	}
	return n > cur
}

// ServiceCharge is the platform fee for a locked price: the flat minimum
// or the percentage of the price, whichever is greater.
func ServiceCharge(price float64) float64 {
	pct := price * serviceChargeRate
	if fixedServiceCharge > pct {
		return fixedServiceCharge
	}
	return pct
}

// TotalValue is what the client pays once a price is locked.
func TotalValue(price float64) float64 {
	return price + ServiceCharge(price)
}
