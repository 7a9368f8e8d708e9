package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
)

// ApplicationRepository persists application documents with per-project
// and per-freelancer index sets.
type ApplicationRepository struct {
	client *redis.Client
}

func NewApplicationRepository(client *redis.Client) *ApplicationRepository {
	return &ApplicationRepository{client: client}
}

func applicationKey(id string) string {
	return applicationKeyPrefix + id
}

func projectApplicationsKey(projectID string) string {
	return projectKeyPrefix + projectID + ":applications"
}

func freelancerApplicationsKey(freelancerID string) string {
	return "mp:freelancer:" + freelancerID + ":applications"
}

// Create stores a new application and its index entries.
func (r *ApplicationRepository) Create(ctx context.Context, a *domain.Application) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = domain.ApplicationPending
	}

	pipe := r.client.Pipeline()
	data, err := marshalDoc(a)
	if err != nil {
		return domain.Dependencyf("store application: %v", err)
	}
	pipe.Set(ctx, applicationKey(a.ID), data, 0)
	pipe.SAdd(ctx, projectApplicationsKey(a.ProjectID), a.ID)
	pipe.SAdd(ctx, freelancerApplicationsKey(a.FreelancerID), a.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Dependencyf("store application: %v", err)
	}
	return nil
}

// Get loads an application by ID.
func (r *ApplicationRepository) Get(ctx context.Context, id string) (*domain.Application, error) {
	a, err := getDoc[domain.Application](ctx, r.client, applicationKey(id))
	if errors.Is(err, errDocMissing) {
		return nil, domain.NotFoundf("application %s not found", id)
	}
	if err != nil {
		return nil, domain.Dependencyf("load application: %v", err)
	}
	return a, nil
}

// Update applies mutate to the application document atomically.
func (r *ApplicationRepository) Update(ctx context.Context, id string, mutate func(*domain.Application) error) (*domain.Application, error) {
	a, err := mutateDoc(ctx, r.client, applicationKey(id), func(a *domain.Application) error {
		if err := mutate(a); err != nil {
			return err
		}
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, errDocMissing) {
			return nil, domain.NotFoundf("application %s not found", id)
		}
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, domain.Dependencyf("update application: %v", err)
	}
	return a, nil
}

// ListByProject returns every application submitted to the project,
// newest first.
func (r *ApplicationRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Application, error) {
	return r.listIndexed(ctx, projectApplicationsKey(projectID))
}

// ListByFreelancer returns every application the freelancer submitted,
// newest first.
func (r *ApplicationRepository) ListByFreelancer(ctx context.Context, freelancerID string) ([]domain.Application, error) {
	return r.listIndexed(ctx, freelancerApplicationsKey(freelancerID))
}

func (r *ApplicationRepository) listIndexed(ctx context.Context, indexKey string) ([]domain.Application, error) {
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, domain.Dependencyf("list applications: %v", err)
	}

	out := make([]domain.Application, 0, len(ids))
	for _, id := range ids {
		a, err := getDoc[domain.Application](ctx, r.client, applicationKey(id))
		if errors.Is(err, errDocMissing) {
			continue // index ahead of a failed write
		}
		if err != nil {
			return nil, domain.Dependencyf("list applications: %v", err)
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
