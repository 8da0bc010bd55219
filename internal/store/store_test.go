package store

import (
	"context"
	"testing"

	"github.com/amishk599/upwatch/internal/model"
)

// testSubscriptionStore runs the behaviour every SubscriptionStore must share.
func testSubscriptionStore(t *testing.T, newStore func(t *testing.T) model.SubscriptionStore) {
	ctx := context.Background()
	alice := model.User{ID: 1, Username: "alice"}
	bob := model.User{ID: 2, Username: "bob"}

	t.Run("AddCreatesTopic", func(t *testing.T) {
		s := newStore(t)

		added, err := s.AddSubscription(ctx, alice, "golang")
		if err != nil {
			t.Fatalf("AddSubscription: %v", err)
		}
		if !added {
			t.Error("expected first subscription to be added")
		}

		exists, err := s.TopicExists(ctx, "golang")
		if err != nil {
			t.Fatalf("TopicExists: %v", err)
		}
		if !exists {
			t.Error("expected topic to exist after subscription")
		}

		added, err = s.AddSubscription(ctx, alice, "golang")
		if err != nil {
			t.Fatalf("second AddSubscription: %v", err)
		}
		if added {
			t.Error("expected duplicate subscription to report false")
		}
	})

	t.Run("LastSeenRoundTrip", func(t *testing.T) {
		s := newStore(t)
		if err := s.CreateTopic(ctx, "rust"); err != nil {
			t.Fatalf("CreateTopic: %v", err)
		}

		got, err := s.LastSeen(ctx, "rust")
		if err != nil {
			t.Fatalf("LastSeen: %v", err)
		}
		if got != "" {
			t.Errorf("new topic LastSeen = %q, want empty", got)
		}

		if err := s.SetLastSeen(ctx, "rust", "https://www.upwork.com/jobs/~01"); err != nil {
			t.Fatalf("SetLastSeen: %v", err)
		}
		got, err = s.LastSeen(ctx, "rust")
		if err != nil {
			t.Fatalf("LastSeen: %v", err)
		}
		if got != "https://www.upwork.com/jobs/~01" {
			t.Errorf("LastSeen = %q", got)
		}

		// Missing topics read as never seen and ignore writes.
		if err := s.SetLastSeen(ctx, "missing", "x"); err != nil {
			t.Fatalf("SetLastSeen missing: %v", err)
		}
		if got, _ := s.LastSeen(ctx, "missing"); got != "" {
			t.Errorf("missing topic LastSeen = %q, want empty", got)
		}
	})

	t.Run("SubscribersAndUserTopics", func(t *testing.T) {
		s := newStore(t)
		for _, sub := range []struct {
			user  model.User
			topic string
		}{
			{bob, "golang"},
			{alice, "golang"},
			{alice, "python"},
		} {
			if _, err := s.AddSubscription(ctx, sub.user, sub.topic); err != nil {
				t.Fatalf("AddSubscription: %v", err)
			}
		}

		subs, err := s.Subscribers(ctx, "golang")
		if err != nil {
			t.Fatalf("Subscribers: %v", err)
		}
		if len(subs) != 2 || subs[0] != 1 || subs[1] != 2 {
			t.Errorf("Subscribers = %v, want [1 2]", subs)
		}

		topics, err := s.UserTopics(ctx, alice.ID)
		if err != nil {
			t.Fatalf("UserTopics: %v", err)
		}
		if len(topics) != 2 || topics[0] != "golang" || topics[1] != "python" {
			t.Errorf("UserTopics = %v, want [golang python]", topics)
		}

		all, err := s.AllTopics(ctx)
		if err != nil {
			t.Fatalf("AllTopics: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("AllTopics len = %d, want 2", len(all))
		}
		if all[0].Name != "golang" || all[0].Subscribers != 2 {
			t.Errorf("AllTopics[0] = %+v", all[0])
		}
		if all[1].Name != "python" || all[1].Subscribers != 1 {
			t.Errorf("AllTopics[1] = %+v", all[1])
		}
	})

	t.Run("RemoveLastSubscriberDeletesTopic", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.AddSubscription(ctx, alice, "golang"); err != nil {
			t.Fatalf("AddSubscription alice: %v", err)
		}
		if _, err := s.AddSubscription(ctx, bob, "golang"); err != nil {
			t.Fatalf("AddSubscription bob: %v", err)
		}

		removed, err := s.RemoveSubscription(ctx, alice.ID, "golang")
		if err != nil {
			t.Fatalf("RemoveSubscription: %v", err)
		}
		if !removed {
			t.Error("expected removal to report true")
		}
		if exists, _ := s.TopicExists(ctx, "golang"); !exists {
			t.Error("topic with a remaining subscriber must survive")
		}

		if _, err := s.RemoveSubscription(ctx, bob.ID, "golang"); err != nil {
			t.Fatalf("RemoveSubscription bob: %v", err)
		}
		if exists, _ := s.TopicExists(ctx, "golang"); exists {
			t.Error("expected orphaned topic to be deleted")
		}
	})

	t.Run("DoubleRemoval", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.AddSubscription(ctx, alice, "golang"); err != nil {
			t.Fatalf("AddSubscription: %v", err)
		}
		if removed, err := s.RemoveSubscription(ctx, alice.ID, "golang"); err != nil || !removed {
			t.Fatalf("first removal = %v, %v", removed, err)
		}
		removed, err := s.RemoveSubscription(ctx, alice.ID, "golang")
		if err != nil {
			t.Fatalf("second removal: %v", err)
		}
		if removed {
			t.Error("expected second removal to report false")
		}
	})

	t.Run("DeleteTopicIfOrphaned", func(t *testing.T) {
		s := newStore(t)
		if err := s.CreateTopic(ctx, "empty"); err != nil {
			t.Fatalf("CreateTopic: %v", err)
		}
		if _, err := s.AddSubscription(ctx, alice, "busy"); err != nil {
			t.Fatalf("AddSubscription: %v", err)
		}

		deleted, err := s.DeleteTopicIfOrphaned(ctx, "busy")
		if err != nil {
			t.Fatalf("DeleteTopicIfOrphaned busy: %v", err)
		}
		if deleted {
			t.Error("topic with subscribers must not be deleted")
		}

		deleted, err = s.DeleteTopicIfOrphaned(ctx, "empty")
		if err != nil {
			t.Fatalf("DeleteTopicIfOrphaned empty: %v", err)
		}
		if !deleted {
			t.Error("expected orphaned topic to be deleted")
		}
		if exists, _ := s.TopicExists(ctx, "empty"); exists {
			t.Error("orphaned topic still exists")
		}
	})

	t.Run("RegisterUserIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		if err := s.RegisterUser(ctx, alice); err != nil {
			t.Fatalf("RegisterUser: %v", err)
		}
		if err := s.RegisterUser(ctx, model.User{ID: alice.ID}); err != nil {
			t.Fatalf("RegisterUser again: %v", err)
		}
		topics, err := s.UserTopics(ctx, alice.ID)
		if err != nil {
			t.Fatalf("UserTopics: %v", err)
		}
		if len(topics) != 0 {
			t.Errorf("UserTopics = %v, want none", topics)
		}
	})
}
