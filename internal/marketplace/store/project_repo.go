package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
)

// ProjectRepository persists project documents.
type ProjectRepository struct {
	client *redis.Client
}

func NewProjectRepository(client *redis.Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

func projectKey(id string) string {
	return projectKeyPrefix + id
}

// Create stores a new project document.
func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = domain.ProjectOpen
	}
	if p.BudgetType == "" {
		p.BudgetType = domain.BudgetFixed
	}
	if err := putDoc(ctx, r.client, projectKey(p.ID), p); err != nil {
		return domain.Dependencyf("store project: %v", err)
	}
	return nil
}

// Get loads a project by ID.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	p, err := getDoc[domain.Project](ctx, r.client, projectKey(id))
	if errors.Is(err, errDocMissing) {
		return nil, domain.NotFoundf("project %s not found", id)
	}
	if err != nil {
		return nil, domain.Dependencyf("load project: %v", err)
	}
	return p, nil
}

// Update applies mutate to the project document atomically. Domain errors
// returned by mutate propagate unchanged; storage failures surface as
// dependency errors.
func (r *ProjectRepository) Update(ctx context.Context, id string, mutate func(*domain.Project) error) (*domain.Project, error) {
	p, err := mutateDoc(ctx, r.client, projectKey(id), func(p *domain.Project) error {
		if err := mutate(p); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, errDocMissing) {
			return nil, domain.NotFoundf("project %s not found", id)
		}
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, domain.Dependencyf("update project: %v", err)
	}
	return p, nil
}

// RepairQueue tracks awarded projects whose convenience saga steps
// (chat announcement, workspace creation) still need a re-run.
type RepairQueue struct {
	client *redis.Client
}

func NewRepairQueue(client *redis.Client) *RepairQueue {
	return &RepairQueue{client: client}
}

func (q *RepairQueue) Add(ctx context.Context, projectID string) error {
	if err := q.client.SAdd(ctx, repairQueueKey, projectID).Err(); err != nil {
		return fmt.Errorf("queue repair for project %s: %w", projectID, err)
	}
	return nil
}

func (q *RepairQueue) Members(ctx context.Context) ([]string, error) {
	ids, err := q.client.SMembers(ctx, repairQueueKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list repair queue: %w", err)
	}
	return ids, nil
}

func (q *RepairQueue) Remove(ctx context.Context, projectID string) error {
	return q.client.SRem(ctx, repairQueueKey, projectID).Err()
}
