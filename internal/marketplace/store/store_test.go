package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func testProject(clientID string) *domain.Project {
	return &domain.Project{
		ClientID:     clientID,
		Title:        "landing page",
		BudgetAmount: 1000,
		BudgetType:   domain.BudgetFixed,
		Deadline:     time.Now().Add(30 * 24 * time.Hour),
		Status:       domain.ProjectOpen,
	}
}

func TestProjectRepository(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewProjectRepository(client)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		p := testProject("client-1")
		require.NoError(t, repo.Create(ctx, p))
		require.NotEmpty(t, p.ID)

		got, err := repo.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "landing page", got.Title)
		assert.Equal(t, domain.ProjectOpen, got.Status)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("get missing is not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "nope")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("update applies mutation atomically", func(t *testing.T) {
		p := testProject("client-1")
		require.NoError(t, repo.Create(ctx, p))

		updated, err := repo.Update(ctx, p.ID, func(p *domain.Project) error {
			p.Status = domain.ProjectAwarded
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ProjectAwarded, updated.Status)
	})

	t.Run("domain error from mutate propagates unwrapped", func(t *testing.T) {
		p := testProject("client-1")
		require.NoError(t, repo.Create(ctx, p))

		_, err := repo.Update(ctx, p.ID, func(p *domain.Project) error {
			return domain.Conflictf("already awarded")
		})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))

		got, err := repo.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ProjectOpen, got.Status, "rejected mutation must not write")
	})
}

func TestApplicationRepository(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewApplicationRepository(client)
	ctx := context.Background()

	mk := func(projectID, freelancerID string) *domain.Application {
		a := &domain.Application{
			ProjectID:        projectID,
			FreelancerID:     freelancerID,
			ClientID:         "client-1",
			ProposedRate:     800,
			ProposedTimeline: 14,
		}
		require.NoError(t, repo.Create(ctx, a))
		return a
	}

	t.Run("indexes by project and freelancer", func(t *testing.T) {
		a1 := mk("proj-1", "free-1")
		a2 := mk("proj-1", "free-2")
		mk("proj-2", "free-1")

		byProject, err := repo.ListByProject(ctx, "proj-1")
		require.NoError(t, err)
		assert.Len(t, byProject, 2)

		byFreelancer, err := repo.ListByFreelancer(ctx, "free-1")
		require.NoError(t, err)
		assert.Len(t, byFreelancer, 2)

		_ = a1
		_ = a2
	})

	t.Run("update enforces mutate outcome", func(t *testing.T) {
		a := mk("proj-3", "free-3")
		got, err := repo.Update(ctx, a.ID, func(a *domain.Application) error {
			if !a.CanTransitionTo(domain.ApplicationWithdrawn) {
				return domain.Conflictf("cannot withdraw")
			}
			a.Status = domain.ApplicationWithdrawn
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationWithdrawn, got.Status)

		_, err = repo.Update(ctx, a.ID, func(a *domain.Application) error {
			if !a.CanTransitionTo(domain.ApplicationWithdrawn) {
				return domain.Conflictf("cannot withdraw")
			}
			a.Status = domain.ApplicationWithdrawn
			return nil
		})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	})
}

func TestChatRepository_FindOrCreate(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewChatRepository(client)
	ctx := context.Background()

	app := &domain.Application{
		ID:           "app-1",
		ProjectID:    "proj-1",
		ClientID:     "client-1",
		FreelancerID: "free-1",
	}

	chat, created, err := repo.FindOrCreateForApplication(ctx, app)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.ChatActive, chat.Status)

	again, created, err := repo.FindOrCreateForApplication(ctx, app)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, chat.ID, again.ID)

	found, err := repo.FindByApplication(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, chat.ID, found.ID)

	ok, err := repo.IsParticipant(ctx, chat.ID, "free-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.IsParticipant(ctx, chat.ID, "stranger")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChatRepository_Messages(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewChatRepository(client)
	ctx := context.Background()

	app := &domain.Application{ID: "app-1", ProjectID: "proj-1", ClientID: "client-1", FreelancerID: "free-1"}
	chat, _, err := repo.FindOrCreateForApplication(ctx, app)
	require.NoError(t, err)

	t.Run("sequence is monotonic per chat", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			m := &domain.Message{ChatID: chat.ID, SenderID: "free-1", Type: domain.MessageText, Content: "hi"}
			require.NoError(t, repo.Append(ctx, m))
			assert.Equal(t, int64(i+1), m.Seq)
		}

		msgs, err := repo.ListMessages(ctx, chat.ID, 1, 10)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Less(t, msgs[0].Seq, msgs[1].Seq)
		assert.Less(t, msgs[1].Seq, msgs[2].Seq)
	})

	t.Run("pagination returns the most recent page first", func(t *testing.T) {
		page1, err := repo.ListMessages(ctx, chat.ID, 1, 2)
		require.NoError(t, err)
		require.Len(t, page1, 2)
		assert.Equal(t, int64(2), page1[0].Seq)
		assert.Equal(t, int64(3), page1[1].Seq)

		page2, err := repo.ListMessages(ctx, chat.ID, 2, 2)
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, int64(1), page2[0].Seq)

		empty, err := repo.ListMessages(ctx, chat.ID, 5, 2)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("pending offer index follows offer status", func(t *testing.T) {
		offer := &domain.Message{
			ChatID:       chat.ID,
			SenderID:     "free-1",
			Type:         domain.MessageOffer,
			OfferDetails: &domain.OfferDetails{ProposedRate: 800, Timeline: 14},
			OfferStatus:  domain.OfferPending,
		}
		require.NoError(t, repo.Append(ctx, offer))

		pending, err := repo.PendingOffers(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		_, err = repo.UpdateOffer(ctx, offer.ID, func(m *domain.Message) error {
			if !m.OfferCanTransitionTo(domain.OfferDeclined) {
				return domain.Conflictf("offer already resolved")
			}
			m.OfferStatus = domain.OfferDeclined
			return nil
		})
		require.NoError(t, err)

		pending, err = repo.PendingOffers(ctx, chat.ID)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestWorkspaceRepository_Idempotent(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewWorkspaceRepository(client)
	ctx := context.Background()

	ws, created, err := repo.FindOrCreateForProject(ctx, "proj-1", "client-1", "free-1", "app-1")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.FindOrCreateForProject(ctx, "proj-1", "client-1", "free-1", "app-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, ws.ID, again.ID)

	found, err := repo.FindByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, ws.ID, found.ID)
}

func TestRepairQueue(t *testing.T) {
	client := setupTestRedis(t)
	q := NewRepairQueue(client)
	ctx := context.Background()

	require.NoError(t, q.Add(ctx, "proj-1"))
	require.NoError(t, q.Add(ctx, "proj-1"))
	require.NoError(t, q.Add(ctx, "proj-2"))

	ids, err := q.Members(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"proj-1", "proj-2"}, ids)

	require.NoError(t, q.Remove(ctx, "proj-1"))
	ids, err = q.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"proj-2"}, ids)
}
