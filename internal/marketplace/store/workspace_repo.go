package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
)

// WorkspaceRepository persists workspace documents. At most one workspace
// exists per project, enforced by a SETNX-claimed pointer key.
type WorkspaceRepository struct {
	client *redis.Client
}

func NewWorkspaceRepository(client *redis.Client) *WorkspaceRepository {
	return &WorkspaceRepository{client: client}
}

func workspaceKey(id string) string {
	return workspaceKeyPrefix + id
}

func projectWorkspaceKey(projectID string) string {
	return projectKeyPrefix + projectID + ":workspace"
}

// FindOrCreateForProject returns the project's workspace, creating it on
// the first successful award. The boolean reports whether this call
// created it.
func (r *WorkspaceRepository) FindOrCreateForProject(ctx context.Context, projectID, clientID, freelancerID, applicationID string) (*domain.Workspace, bool, error) {
	ws := &domain.Workspace{
		ID:            uuid.New().String(),
		ProjectID:     projectID,
		ClientID:      clientID,
		FreelancerID:  freelancerID,
		ApplicationID: applicationID,
		Status:        "active",
		CreatedAt:     time.Now().UTC(),
	}
	if err := putDoc(ctx, r.client, workspaceKey(ws.ID), ws); err != nil {
		return nil, false, domain.Dependencyf("store workspace: %v", err)
	}

	claimed, err := r.client.SetNX(ctx, projectWorkspaceKey(projectID), ws.ID, 0).Result()
	if err != nil {
		return nil, false, domain.Dependencyf("claim workspace for project %s: %v", projectID, err)
	}
	if claimed {
		return ws, true, nil
	}

	_ = r.client.Del(ctx, workspaceKey(ws.ID)).Err()
	winnerID, err := r.client.Get(ctx, projectWorkspaceKey(projectID)).Result()
	if err != nil {
		return nil, false, domain.Dependencyf("resolve workspace for project %s: %v", projectID, err)
	}
	existing, err := r.Get(ctx, winnerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindByProject returns the project's workspace, if one exists.
func (r *WorkspaceRepository) FindByProject(ctx context.Context, projectID string) (*domain.Workspace, error) {
	id, err := r.client.Get(ctx, projectWorkspaceKey(projectID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NotFoundf("no workspace for project %s", projectID)
	}
	if err != nil {
		return nil, domain.Dependencyf("resolve workspace: %v", err)
	}
	return r.Get(ctx, id)
}

// Get loads a workspace by ID.
func (r *WorkspaceRepository) Get(ctx context.Context, id string) (*domain.Workspace, error) {
	ws, err := getDoc[domain.Workspace](ctx, r.client, workspaceKey(id))
	if errors.Is(err, errDocMissing) {
		return nil, domain.NotFoundf("workspace %s not found", id)
	}
	if err != nil {
		return nil, domain.Dependencyf("load workspace: %v", err)
	}
	return ws, nil
}
