package services

import (
	"log/slog"
	"time"

	"platerate/internal/lookup"
	"platerate/internal/store"
)

// Options carries the behaviour switches read from config.
type Options struct {
	CarRefreshAfter    time.Duration
	ExcludeOwnReceived bool
	ModeratorUIDs      []string
}

// Services is the set of components the HTTP layer calls.
type Services struct {
	Users         *UserService
	Watch         *WatchService
	Reviews       *ReviewService
	Comments      *CommentService
	Moderation    *ModerationService
	Notifications *NotificationService
	Notifier      *Notifier
}

// New wires every service over one store client. The caller starts
// Notifier.Run.
func New(c *store.Client, lk lookup.Lookup, opts Options, logger *slog.Logger) *Services {
	watch := NewWatchService(c, lk, opts.CarRefreshAfter, logger.With("component", "watch"))
	moderation := NewModerationService(c, logger.With("component", "moderation"))
	notifier := NewNotifier(c, watch, logger.With("component", "notifier"))

	return &Services{
		Users:         NewUserService(c, opts.ModeratorUIDs, logger.With("component", "users")),
		Watch:         watch,
		Reviews:       NewReviewService(c, watch, moderation, notifier, opts.ExcludeOwnReceived, logger.With("component", "reviews")),
		Comments:      NewCommentService(c, moderation, logger.With("component", "comments")),
		Moderation:    moderation,
		Notifications: NewNotificationService(c, logger.With("component", "notifications")),
		Notifier:      notifier,
	}
}
