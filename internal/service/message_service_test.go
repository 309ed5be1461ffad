package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/repository/postgres"
	"github.com/arjun/temporary-social/internal/service"
	"github.com/arjun/temporary-social/internal/testutil"
)

func TestMessageService_Send(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	messageService := service.NewMessageService(repos.Message, repos.User, cfg)
	ctx := context.Background()

	t.Run("two sends persist two messages", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)

		first, err := messageService.Send(ctx, service.SendMessageInput{
			SenderID:    alice.ID,
			RecipientID: bob.ID,
			Content:     "first",
		})
		require.NoError(t, err)

		second, err := messageService.Send(ctx, service.SendMessageInput{
			SenderID:    alice.ID,
			RecipientID: bob.ID,
			Content:     "second",
		})
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Greater(t, second.Seq, first.Seq)

		var count int64
		require.NoError(t, testDB.DB.Model(&domain.Message{}).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("empty content", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)

		_, err := messageService.Send(ctx, service.SendMessageInput{
			SenderID:    alice.ID,
			RecipientID: bob.ID,
			Content:     "",
		})
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("content too long", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)

		_, err := messageService.Send(ctx, service.SendMessageInput{
			SenderID:    alice.ID,
			RecipientID: bob.ID,
			Content:     strings.Repeat("x", domain.MaxMessageLength+1),
		})
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("self message", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)

		_, err := messageService.Send(ctx, service.SendMessageInput{
			SenderID:    alice.ID,
			RecipientID: alice.ID,
			Content:     "hi me",
		})
		assert.ErrorIs(t, err, domain.ErrSelfMessage)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		ghost := testutil.NewUserBuilder().Build(t, testDB.DB)
		require.NoError(t, testDB.DB.Delete(&domain.User{}, "id = ?", ghost.ID).Error)

		_, err := messageService.Send(ctx, service.SendMessageInput{
			SenderID:    alice.ID,
			RecipientID: ghost.ID,
			Content:     "anyone there",
		})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestMessageService_MarkRead(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	messageService := service.NewMessageService(repos.Message, repos.User, cfg)
	ctx := context.Background()

	t.Run("recipient marks read", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)
		msg := testutil.NewMessageBuilder(alice, bob).Build(t, testDB.DB)

		read, err := messageService.MarkRead(ctx, msg.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, read.IsRead)
		require.NotNil(t, read.ReadAt)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)
		msg := testutil.NewMessageBuilder(alice, bob).Build(t, testDB.DB)

		first, err := messageService.MarkRead(ctx, msg.ID, bob.ID)
		require.NoError(t, err)

		second, err := messageService.MarkRead(ctx, msg.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ReadAt.Unix(), second.ReadAt.Unix())
	})

	t.Run("sender cannot mark own message read", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)
		msg := testutil.NewMessageBuilder(alice, bob).Build(t, testDB.DB)

		// Foreign messages are indistinguishable from missing ones
		_, err := messageService.MarkRead(ctx, msg.ID, alice.ID)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})

	t.Run("third party cannot probe message existence", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)
		eve := testutil.NewUserBuilder().Build(t, testDB.DB)
		msg := testutil.NewMessageBuilder(alice, bob).Build(t, testDB.DB)

		_, err := messageService.MarkRead(ctx, msg.ID, eve.ID)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})
}

func TestMessageService_Conversation(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	messageService := service.NewMessageService(repos.Message, repos.User, cfg)
	ctx := context.Background()

	t.Run("messages come back oldest first", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)

		for _, content := range []string{"one", "two", "three"} {
			testutil.NewMessageBuilder(alice, bob).WithContent(content).Build(t, testDB.DB)
		}

		messages, err := messageService.Conversation(ctx, bob.ID, alice.ID, 0)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, "one", messages[0].Content)
		assert.Equal(t, "three", messages[2].Content)
	})

	t.Run("fetching marks inbound read", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)
		testutil.NewMessageBuilder(alice, bob).Build(t, testDB.DB)

		count, err := messageService.UnreadCount(ctx, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		_, err = messageService.Conversation(ctx, bob.ID, alice.ID, 0)
		require.NoError(t, err)

		count, err = messageService.UnreadCount(ctx, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})

	t.Run("conversation summaries", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)
		carol := testutil.NewUserBuilder().Build(t, testDB.DB)

		testutil.NewMessageBuilder(bob, alice).WithContent("from bob").Build(t, testDB.DB)
		testutil.NewMessageBuilder(carol, alice).WithContent("from carol").Build(t, testDB.DB)
		testutil.NewMessageBuilder(carol, alice).WithContent("carol again").Build(t, testDB.DB)

		summaries, err := messageService.Conversations(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		// Most recent conversation first
		assert.Equal(t, carol.ID, summaries[0].Peer.ID)
		assert.Equal(t, "carol again", summaries[0].LastMessage.Content)
		assert.EqualValues(t, 2, summaries[0].UnreadCount)

		assert.Equal(t, bob.ID, summaries[1].Peer.ID)
		assert.EqualValues(t, 1, summaries[1].UnreadCount)
	})
}

func TestMessageService_Delete(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	messageService := service.NewMessageService(repos.Message, repos.User, cfg)
	ctx := context.Background()

	t.Run("sender deletes own message", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)
		msg := testutil.NewMessageBuilder(alice, bob).Build(t, testDB.DB)

		require.NoError(t, messageService.Delete(ctx, msg.ID, alice.ID))

		var count int64
		require.NoError(t, testDB.DB.Model(&domain.Message{}).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})

	t.Run("recipient cannot delete", func(t *testing.T) {
		testDB.Truncate(t)

		alice := testutil.NewUserBuilder().Build(t, testDB.DB)
		bob := testutil.NewUserBuilder().Build(t, testDB.DB)
		msg := testutil.NewMessageBuilder(alice, bob).Build(t, testDB.DB)

		assert.ErrorIs(t, messageService.Delete(ctx, msg.ID, bob.ID), domain.ErrMessageNotFound)
	})
}
