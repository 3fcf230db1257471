package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"platerate/internal/models"
	"platerate/internal/store"
)

func TestNotifyReviewFansOutToWatchers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{})
	author := env.user(t, "u1", "Alice")
	bob := env.user(t, "u2", "Bob")
	carol := env.user(t, "u3", "Carol")
	env.user(t, "u4", "Dave")

	for _, s := range []Session{author, bob, carol} {
		if _, err := env.Watch.Watch(ctx, s, "AB12CD"); err != nil {
			t.Fatalf("Watch: %v", err)
		}
	}
	if err := env.Moderation.Block(ctx, carol, "u1"); err != nil {
		t.Fatalf("Block: %v", err)
	}

	r, err := env.Reviews.Create(ctx, author, ReviewInput{Plate: "AB12CD", Rating: 4, Title: "Courteous"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := env.Notifier.NotifyReview(ctx, r.ID); got != 1 {
		t.Fatalf("notified %d watchers, want 1", got)
	}
	list, _ := env.Notifications.List(ctx, bob)
	if len(list) != 1 || list[0].Type != models.NotificationTypeWatchedReview || list[0].Plate != "AB12CD" || list[0].ReviewID != r.ID {
		t.Errorf("bob notifications = %+v", list)
	}
	for _, uid := range []string{"u1", "u3", "u4"} {
		if n := env.t.notifications.Count(ctx, store.Eq("recipient_uid", uid)); n != 0 {
			t.Errorf("%s got %d notifications", uid, n)
		}
	}

	// 重复处理不会重复通知
	if got := env.Notifier.NotifyReview(ctx, r.ID); got != 0 {
		t.Errorf("second NotifyReview created %d", got)
	}
}

func TestNotificationsOmitOptedOutActor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{})
	alice := env.user(t, "u1", "Alice")
	bob := env.user(t, "u2", "Bob")

	if _, err := env.Watch.Watch(ctx, bob, "AB12CD"); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := env.Moderation.OptOut(ctx, alice); err != nil {
		t.Fatalf("OptOut: %v", err)
	}
	r, err := env.Reviews.Create(ctx, alice, ReviewInput{Plate: "AB12CD", Rating: 2, Title: "Cut me off"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := env.Notifier.NotifyReview(ctx, r.ID); got != 1 {
		t.Fatalf("notified %d watchers, want 1", got)
	}

	// 评论回复同样不暴露 uid
	top, err := env.Comments.PostComment(ctx, bob, r.ID, "which junction?", nil)
	if err != nil {
		t.Fatalf("PostComment: %v", err)
	}
	if _, err := env.Comments.PostComment(ctx, alice, r.ID, "the roundabout", &top.ID); err != nil {
		t.Fatalf("reply: %v", err)
	}

	list, _ := env.Notifications.List(ctx, bob)
	if len(list) != 2 {
		t.Fatalf("bob has %d notifications, want 2", len(list))
	}
	for _, n := range list {
		if n.ActorUID != "" {
			t.Errorf("%s notification carries actor_uid %q", n.Type, n.ActorUID)
		}
	}

	// bob 未退出，alice 收到的评论通知保留 actor
	alices, _ := env.Notifications.List(ctx, alice)
	if len(alices) != 1 || alices[0].ActorUID != "u2" {
		t.Errorf("alice notifications = %+v", alices)
	}
}

func TestNotifierRunDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnv(t, Options{})
	author := env.user(t, "u1", "Alice")
	bob := env.user(t, "u2", "Bob")
	env.Watch.Watch(ctx, bob, "AB12CD")

	done := make(chan struct{})
	go func() {
		env.Notifier.Run(ctx)
		close(done)
	}()

	if _, err := env.Reviews.Create(ctx, author, ReviewInput{Plate: "AB12CD", Rating: 5, Title: "Lovely"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for env.Notifications.UnreadCount(ctx, bob) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("notification not delivered")
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestScheduleDeduplicates(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.Notifier.Schedule(7)
	env.Notifier.Schedule(7)
	if got := len(env.Notifier.queue); got != 1 {
		t.Errorf("queue length = %d, want 1", got)
	}
}

func TestNotificationOperations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{})
	alice := env.user(t, "u1", "Alice")
	bob := env.user(t, "u2", "Bob")

	for i := 0; i < 3; i++ {
		n := &models.Notification{RecipientUID: "u1", Type: models.NotificationTypeSystem, Title: "hi"}
		if err := env.t.notifications.Insert(ctx, n); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	list, err := env.Notifications.List(ctx, alice)
	if err != nil || len(list) != 3 {
		t.Fatalf("List = %d, %v", len(list), err)
	}
	if got := env.Notifications.UnreadCount(ctx, alice); got != 3 {
		t.Errorf("unread = %d", got)
	}

	if err := env.Notifications.MarkRead(ctx, bob, list[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign MarkRead err = %v", err)
	}
	if err := env.Notifications.MarkRead(ctx, alice, list[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if got := env.Notifications.UnreadCount(ctx, alice); got != 2 {
		t.Errorf("unread after MarkRead = %d", got)
	}
	if err := env.Notifications.MarkAllRead(ctx, alice); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if got := env.Notifications.UnreadCount(ctx, alice); got != 0 {
		t.Errorf("unread after MarkAllRead = %d", got)
	}

	if err := env.Notifications.Delete(ctx, bob, list[1].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign Delete err = %v", err)
	}
	if err := env.Notifications.Delete(ctx, alice, list[1].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if list, _ := env.Notifications.List(ctx, alice); len(list) != 2 {
		t.Errorf("after delete = %d", len(list))
	}
	if _, err := env.Notifications.List(ctx, Session{}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous List err = %v", err)
	}
}
