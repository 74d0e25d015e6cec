package services

import (
	"context"
	"testing"
	"time"

	"finsight/internal/models"
	"finsight/internal/testutil"
)

func TestChatSessionStore(t *testing.T) {
	t.Run("create_and_get", func(t *testing.T) {
		store := NewChatSessionStore(time.Hour)
		session := store.Create("u1")

		got, err := store.Get("u1", session.ID)
		testutil.AssertNoError(t, err)
		if got != session {
			t.Error("expected the same session back")
		}
	})

	t.Run("other_user", func(t *testing.T) {
		store := NewChatSessionStore(time.Hour)
		session := store.Create("u1")

		_, err := store.Get("u2", session.ID)
		testutil.AssertAppError(t, err, "CHAT_SESSION_NOT_FOUND")
	})

	t.Run("delete", func(t *testing.T) {
		store := NewChatSessionStore(0)
		session := store.Create("u1")

		testutil.AssertNoError(t, store.Delete("u1", session.ID))
		_, err := store.Get("u1", session.ID)
		testutil.AssertAppError(t, err, "CHAT_SESSION_NOT_FOUND")
		testutil.AssertAppError(t, store.Delete("u1", session.ID), "CHAT_SESSION_NOT_FOUND")
	})

	t.Run("delete_cancels_outstanding_request", func(t *testing.T) {
		store := NewChatSessionStore(time.Hour)
		session := store.Create("u1")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if !session.TryBegin(cancel) {
			t.Fatal("expected idle session")
		}

		testutil.AssertNoError(t, store.Delete("u1", session.ID))

		if ctx.Err() == nil {
			t.Error("expected the request context to be cancelled")
		}
		if session.State() != models.ChatStateCancelled {
			t.Errorf("expected CANCELLED, got %s", session.State())
		}
	})

	t.Run("expires_when_idle", func(t *testing.T) {
		store := NewChatSessionStore(20 * time.Millisecond)
		session := store.Create("u1")

		time.Sleep(40 * time.Millisecond)
		_, err := store.Get("u1", session.ID)
		testutil.AssertAppError(t, err, "CHAT_SESSION_NOT_FOUND")
	})
}
