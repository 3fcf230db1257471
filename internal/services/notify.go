package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"platerate/internal/models"
	"platerate/internal/store"
)

const (
	notifyQueueSize = 1000
	notifyBatchSize = 50
	notifyInterval  = 500 * time.Millisecond
)

// Notifier 异步把新点评扇出给关注该车牌的用户
type Notifier struct {
	t       tables
	watch   *WatchService
	logger  *slog.Logger
	queue   chan uint // 待处理的 review ID
	pending map[uint]bool
	mu      sync.Mutex
}

func NewNotifier(c *store.Client, watch *WatchService, logger *slog.Logger) *Notifier {
	return &Notifier{
		t:       newTables(c),
		watch:   watch,
		logger:  logger,
		queue:   make(chan uint, notifyQueueSize),
		pending: make(map[uint]bool),
	}
}

// Schedule queues a review for fan-out. A review already queued is skipped;
// a full queue drops the request.
func (n *Notifier) Schedule(reviewID uint) {
	n.mu.Lock()
	if n.pending[reviewID] {
		n.mu.Unlock()
		return
	}
	n.pending[reviewID] = true
	n.mu.Unlock()

	select {
	case n.queue <- reviewID:
	default:
		n.mu.Lock()
		delete(n.pending, reviewID)
		n.mu.Unlock()
		n.logger.Warn("Notification queue full, dropping review", "review", reviewID)
	}
}

// Run processes the queue in batches until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	batch := make([]uint, 0, notifyBatchSize)
	ticker := time.NewTicker(notifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				n.logger.Info("Notifier stopping with unsent batch", "reviews", len(batch))
			}
			return
		case id := <-n.queue:
			batch = append(batch, id)
			if len(batch) >= notifyBatchSize {
				n.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				n.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (n *Notifier) processBatch(ctx context.Context, ids []uint) {
	for _, id := range ids {
		n.NotifyReview(ctx, id)

		n.mu.Lock()
		delete(n.pending, id)
		n.mu.Unlock()
	}
}

// NotifyReview creates one notification per watcher of the review's plate,
// skipping the author, watchers who block the author and watchers already
// notified. It returns the number of notifications created.
func (n *Notifier) NotifyReview(ctx context.Context, reviewID uint) int {
	review := n.t.reviews.FirstBy(ctx, store.Eq("id", reviewID))
	if review == nil || review.Hidden {
		return 0
	}

	watchers := n.watch.Watchers(ctx, review.Plate)
	if len(watchers) == 0 {
		return 0
	}

	skip := map[string]bool{review.CreatedBy: true}
	for _, e := range n.t.blocks.FindBy(ctx, store.In("user_blocking", watchers), store.Eq("blocked_user", review.CreatedBy)) {
		skip[e.UserBlocking] = true
	}
	for _, existing := range n.t.notifications.FindBy(ctx,
		store.Eq("review_id", review.ID),
		store.Eq("type", models.NotificationTypeWatchedReview),
	) {
		skip[existing.RecipientUID] = true
	}

	actor := n.t.publicUID(ctx, review.CreatedBy)
	created := 0
	for _, uid := range watchers {
		if skip[uid] {
			continue
		}
		notif := &models.Notification{
			RecipientUID: uid,
			ActorUID:     actor,
			Type:         models.NotificationTypeWatchedReview,
			Title:        fmt.Sprintf("New review for %s", review.Plate),
			Message:      fmt.Sprintf("%s (%d/%d)", review.Title, review.Rating, models.MaxRating),
			Plate:        review.Plate,
			ReviewID:     review.ID,
		}
		if err := n.t.notifications.Insert(ctx, notif); err != nil {
			n.logger.Warn("Failed to create review notification", "review", review.ID, "recipient", uid, "error", err)
			continue
		}
		created++
	}
	if created > 0 {
		n.logger.Info("Watchers notified", "review", review.ID, "plate", review.Plate, "count", created)
	}
	return created
}

const notificationPageSize = 50

// NotificationService reads and updates the caller's notifications.
type NotificationService struct {
	t      tables
	logger *slog.Logger
}

func NewNotificationService(c *store.Client, logger *slog.Logger) *NotificationService {
	return &NotificationService{t: newTables(c), logger: logger}
}

// List returns the newest notifications of the caller.
func (s *NotificationService) List(ctx context.Context, sess Session) ([]models.Notification, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	q := store.Where(store.Eq("recipient_uid", sess.UID)).
		OrderBy(store.Desc("created_at"), store.Desc("id")).
		Take(notificationPageSize)
	return s.t.notifications.Find(ctx, q), nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, sess Session) int64 {
	if sess.Anonymous() {
		return 0
	}
	return s.t.notifications.Count(ctx, store.Eq("recipient_uid", sess.UID), store.Eq("is_read", false))
}

// MarkRead marks one of the caller's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, sess Session, id uint) error {
	if err := sess.require(); err != nil {
		return err
	}
	if s.t.notifications.Count(ctx, store.Eq("id", id), store.Eq("recipient_uid", sess.UID)) == 0 {
		return ErrNotFound
	}
	if _, err := s.t.notifications.Update(ctx, map[string]any{"is_read": true}, store.Eq("id", id), store.Eq("recipient_uid", sess.UID)); err != nil {
		return writeFailed("mark notification read", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, sess Session) error {
	if err := sess.require(); err != nil {
		return err
	}
	if _, err := s.t.notifications.Update(ctx, map[string]any{"is_read": true}, store.Eq("recipient_uid", sess.UID), store.Eq("is_read", false)); err != nil {
		return writeFailed("mark notifications read", err)
	}
	return nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, sess Session, id uint) error {
	if err := sess.require(); err != nil {
		return err
	}
	n, err := s.t.notifications.Delete(ctx, store.Eq("id", id), store.Eq("recipient_uid", sess.UID))
	if err != nil {
		return writeFailed("delete notification", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
