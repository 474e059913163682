package services

import (
	"context"
	"testing"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPresenceService(t *testing.T, ttl time.Duration) (PresenceService, *events.Hub) {
	t.Helper()
	logger := zap.NewNop()
	c := cache.NewMemoryCache(logger)
	t.Cleanup(func() { c.Close() })
	hub := events.NewHub(16, logger)
	return NewPresenceService(c, hub, ttl, logger), hub
}

func TestPresenceRegisterAndGet(t *testing.T) {
	svc, _ := newTestPresenceService(t, time.Minute)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &RegisterPresenceRequest{
		Username:   "octocat",
		Charname:   "gandalf",
		WorkingDir: "/home/octocat/homework",
	})
	require.NoError(t, err)
	assert.True(t, registered.IsActive)
	assert.False(t, registered.LastSeen.IsZero())

	got, err := svc.GetByCharname(ctx, "gandalf")
	require.NoError(t, err)
	assert.Equal(t, "octocat", got.Username)
	assert.Equal(t, "/home/octocat/homework", got.WorkingDir)
}

func TestPresenceGetUnknownCharname(t *testing.T) {
	svc, _ := newTestPresenceService(t, time.Minute)

	_, err := svc.GetByCharname(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestPresenceHeartbeatRefreshesLastSeen(t *testing.T) {
	svc, _ := newTestPresenceService(t, time.Minute)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &RegisterPresenceRequest{
		Username: "octocat", Charname: "gandalf", WorkingDir: "/tmp/work",
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	beat, err := svc.Heartbeat(ctx, "gandalf")
	require.NoError(t, err)
	assert.True(t, beat.LastSeen.After(registered.LastSeen))
}

func TestPresenceHeartbeatUnknownCharname(t *testing.T) {
	svc, _ := newTestPresenceService(t, time.Minute)

	_, err := svc.Heartbeat(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestPresenceDeregister(t *testing.T) {
	svc, _ := newTestPresenceService(t, time.Minute)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterPresenceRequest{
		Username: "octocat", Charname: "gandalf", WorkingDir: "/tmp/work",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deregister(ctx, "gandalf"))

	_, err = svc.GetByCharname(ctx, "gandalf")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))

	// Deregistering again is a no-op.
	require.NoError(t, svc.Deregister(ctx, "gandalf"))
}

func TestPresenceRoster(t *testing.T) {
	svc, _ := newTestPresenceService(t, time.Minute)
	ctx := context.Background()

	sessions := []RegisterPresenceRequest{
		{Username: "octocat", Charname: "gandalf", WorkingDir: "/srv/webdev"},
		{Username: "hubot", Charname: "aragorn", WorkingDir: "/srv/webdev"},
		{Username: "monalisa", Charname: "frodo", WorkingDir: "/srv/databases"},
	}
	for i := range sessions {
		_, err := svc.Register(ctx, &sessions[i])
		require.NoError(t, err)
	}

	roster, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, roster.Active, 3)
	// Sorted by charname for stable output.
	assert.Equal(t, "aragorn", roster.Active[0].Charname)
	assert.Equal(t, "frodo", roster.Active[1].Charname)
	assert.Equal(t, "gandalf", roster.Active[2].Charname)

	webdev, err := svc.ListActiveByWorkingDir(ctx, "/srv/webdev")
	require.NoError(t, err)
	require.Len(t, webdev.Active, 2)
}

func TestPresenceExpiry(t *testing.T) {
	svc, _ := newTestPresenceService(t, 20*time.Millisecond)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterPresenceRequest{
		Username: "octocat", Charname: "gandalf", WorkingDir: "/tmp/work",
	})
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = svc.GetByCharname(ctx, "gandalf")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestPresencePublishesEvents(t *testing.T) {
	svc, hub := newTestPresenceService(t, time.Minute)
	ctx := context.Background()

	ch, cancel := hub.Subscribe()
	defer cancel()

	_, err := svc.Register(ctx, &RegisterPresenceRequest{
		Username: "octocat", Charname: "gandalf", WorkingDir: "/tmp/work",
	})
	require.NoError(t, err)

	select {
	case event := <-ch:
		assert.Equal(t, events.TypePresenceRegistered, event.Type)
		assert.Equal(t, "gandalf", event.Charname)
	case <-time.After(time.Second):
		t.Fatal("expected a registration event")
	}

	require.NoError(t, svc.Deregister(ctx, "gandalf"))

	select {
	case event := <-ch:
		assert.Equal(t, events.TypePresenceDeregistered, event.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a deregistration event")
	}
}
