package domain

import "time"

// Workspace is the collaboration container created at most once per
// project when an award completes. Milestone and delivery logic live
// elsewhere; the marketplace core only creates and links it.
type Workspace struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	ClientID      string    `json:"client_id"`
	FreelancerID  string    `json:"freelancer_id"`
	ApplicationID string    `json:"application_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
