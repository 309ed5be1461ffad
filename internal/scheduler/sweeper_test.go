package scheduler_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/presence"
	"github.com/arjun/temporary-social/internal/relay"
	"github.com/arjun/temporary-social/internal/repository/postgres"
	"github.com/arjun/temporary-social/internal/scheduler"
	"github.com/arjun/temporary-social/internal/testutil"
)

type recordingHandle struct {
	events []relay.Event
}

func (h *recordingHandle) Push(data []byte) error {
	var event relay.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandle) eventTypes() []relay.EventType {
	types := make([]relay.EventType, 0, len(h.events))
	for _, e := range h.events {
		types = append(types, e.Type)
	}
	return types
}

func TestSweeper_WarningSweep(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	registry := presence.NewRegistry()
	sweeper := scheduler.NewSweeper(repos, registry, cfg)
	ctx := context.Background()

	testDB.Truncate(t)

	// Present and inside the warning window
	expiring := testutil.NewUserBuilder().
		WithSessionEnd(time.Now().Add(15 * time.Minute)).
		Build(t, testDB.DB)
	expiringHandle := &recordingHandle{}
	registry.Register(expiring.ID, expiringHandle)

	// Present with plenty of time left
	fresh := testutil.NewUserBuilder().Build(t, testDB.DB)
	freshHandle := &recordingHandle{}
	registry.Register(fresh.ID, freshHandle)

	// Inside the window but offline; nothing to push to
	testutil.NewUserBuilder().
		WithSessionEnd(time.Now().Add(10 * time.Minute)).
		Build(t, testDB.DB)

	sweeper.WarningSweep(ctx)

	require.Len(t, expiringHandle.events, 1)
	assert.Equal(t, relay.EventTypeSessionWarning, expiringHandle.events[0].Type)

	var payload relay.SessionWarningPayload
	require.NoError(t, json.Unmarshal(expiringHandle.events[0].Payload, &payload))
	assert.False(t, payload.TimeRemaining.Expired)
	assert.Contains(t, payload.Message, "Your session expires in")

	assert.Empty(t, freshHandle.events)
}

func TestSweeper_ExpirySweep(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	registry := presence.NewRegistry()
	sweeper := scheduler.NewSweeper(repos, registry, cfg)
	ctx := context.Background()

	testDB.Truncate(t)

	// Expired and still connected
	expired := testutil.NewUserBuilder().
		WithSessionEnd(time.Now().Add(-time.Minute)).
		Build(t, testDB.DB)
	expiredHandle := &recordingHandle{}
	registry.Register(expired.ID, expiredHandle)

	// Live user is untouched
	live := testutil.NewUserBuilder().Build(t, testDB.DB)
	liveHandle := &recordingHandle{}
	registry.Register(live.ID, liveHandle)

	sweeper.ExpirySweep(ctx)

	// One sweep: notified, deregistered, deactivated
	assert.Equal(t, []relay.EventType{relay.EventTypeSessionExpired}, expiredHandle.eventTypes())
	assert.Nil(t, registry.Lookup(expired.ID))

	var stored domain.User
	require.NoError(t, testDB.DB.First(&stored, "id = ?", expired.ID).Error)
	assert.False(t, stored.IsActive)

	assert.Empty(t, liveHandle.events)
	assert.NotNil(t, registry.Lookup(live.ID))
}

// reconnectingHandle re-registers a replacement connection while the sweep is
// pushing to it, the way a client reconnecting mid-sweep would.
type reconnectingHandle struct {
	recordingHandle
	registry *presence.Registry
	userID   uuid.UUID
	next     presence.Handle
}

func (h *reconnectingHandle) Push(data []byte) error {
	h.registry.Register(h.userID, h.next)
	return h.recordingHandle.Push(data)
}

func TestSweeper_ExpirySweepKeepsMidSweepReconnect(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	registry := presence.NewRegistry()
	sweeper := scheduler.NewSweeper(repos, registry, cfg)
	ctx := context.Background()

	testDB.Truncate(t)

	expired := testutil.NewUserBuilder().
		WithSessionEnd(time.Now().Add(-time.Minute)).
		Build(t, testDB.DB)

	replacement := &recordingHandle{}
	old := &reconnectingHandle{registry: registry, userID: expired.ID, next: replacement}
	registry.Register(expired.ID, old)

	sweeper.ExpirySweep(ctx)

	// The sweep only evicts the handle it notified
	assert.Equal(t, presence.Handle(replacement), registry.Lookup(expired.ID))
	assert.Equal(t, []relay.EventType{relay.EventTypeSessionExpired}, old.eventTypes())
}

func TestSweeper_PurgeSweep(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	registry := presence.NewRegistry()
	sweeper := scheduler.NewSweeper(repos, registry, cfg)
	ctx := context.Background()

	testDB.Truncate(t)

	past := time.Now().Add(-time.Minute)

	alice := testutil.NewUserBuilder().Build(t, testDB.DB)
	bob := testutil.NewUserBuilder().Build(t, testDB.DB)
	gone := testutil.NewUserBuilder().WithSessionEnd(past).Build(t, testDB.DB)

	testutil.NewMessageBuilder(alice, bob).WithExpiresAt(past).Build(t, testDB.DB)
	kept := testutil.NewMessageBuilder(alice, bob).Build(t, testDB.DB)
	testutil.NewPaymentBuilder(alice, bob).WithExpiresAt(past).Build(t, testDB.DB)

	sweeper.PurgeSweep(ctx)

	var messages []domain.Message
	require.NoError(t, testDB.DB.Find(&messages).Error)
	require.Len(t, messages, 1)
	assert.Equal(t, kept.ID, messages[0].ID)

	var payments int64
	require.NoError(t, testDB.DB.Model(&domain.Payment{}).Count(&payments).Error)
	assert.EqualValues(t, 0, payments)

	var users []domain.User
	require.NoError(t, testDB.DB.Find(&users).Error)
	assert.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, gone.ID, u.ID)
	}
}
