package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"platerate/internal/models"
	"platerate/internal/store"
	"platerate/internal/utils"
)

const maxFlagReasonLength = 200

// ModerationService handles flags, user blocking and opt-out, and filters
// aggregated results for a viewer.
type ModerationService struct {
	t      tables
	logger *slog.Logger
}

func NewModerationService(c *store.Client, logger *slog.Logger) *ModerationService {
	return &ModerationService{t: newTables(c), logger: logger}
}

// IsBlocked reports whether some edge blocks target on behalf of blocking.
// Edges without a blocked user never match.
func IsBlocked(blocking, target string, edges []models.BlockedUser) bool {
	for _, e := range edges {
		if e.Matches(blocking, target) {
			return true
		}
	}
	return false
}

// Block hides target's content from the caller. Blocking twice is a no-op.
func (s *ModerationService) Block(ctx context.Context, sess Session, target string) error {
	if err := sess.require(); err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	if target == "" || target == sess.UID {
		return invalid("cannot block this user")
	}
	if s.t.users.Count(ctx, store.Eq("uid", target)) == 0 {
		return ErrNotFound
	}

	edge := &models.BlockedUser{BlockedUser: &target, UserBlocking: sess.UID}
	if err := s.t.blocks.Upsert(ctx, edge, store.Conflict{Columns: []string{"blocked_user", "user_blocking"}}); err != nil {
		return writeFailed("save block", err)
	}
	s.logger.Info("User blocked", "uid", sess.UID, "target", target)
	return nil
}

// Unblock removes the edge; unblocking a user who is not blocked succeeds.
func (s *ModerationService) Unblock(ctx context.Context, sess Session, target string) error {
	if err := sess.require(); err != nil {
		return err
	}
	if _, err := s.t.blocks.Delete(ctx, store.Eq("user_blocking", sess.UID), store.Eq("blocked_user", target)); err != nil {
		return writeFailed("delete block", err)
	}
	return nil
}

// BlockedBy returns the edges uid created.
func (s *ModerationService) BlockedBy(ctx context.Context, uid string) []models.BlockedUser {
	if uid == "" {
		return []models.BlockedUser{}
	}
	return s.t.blocks.Find(ctx, store.Where(store.Eq("user_blocking", uid)).OrderBy(store.Desc("created_at")))
}

// Flag marks a review for moderator attention. Flagging twice updates the reason.
func (s *ModerationService) Flag(ctx context.Context, sess Session, reviewID uint, reason string) error {
	if err := sess.require(); err != nil {
		return err
	}
	reason = utils.SanitizeText(reason)
	if utf8.RuneCountInString(reason) > maxFlagReasonLength {
		return invalid("reason longer than %d characters", maxFlagReasonLength)
	}
	if s.t.reviews.Count(ctx, store.Eq("id", reviewID)) == 0 {
		return ErrNotFound
	}

	flag := &models.ReviewFlag{ReviewID: reviewID, FlaggerUID: sess.UID, Reason: reason}
	err := s.t.flags.Upsert(ctx, flag, store.Conflict{
		Columns: []string{"review_id", "flagger_uid"},
		Update:  []string{"reason"},
	})
	if err != nil {
		return writeFailed("save flag", err)
	}
	if _, err := s.t.reviews.Update(ctx, map[string]any{"is_flagged": true}, store.Eq("id", reviewID)); err != nil {
		return writeFailed("mark review flagged", err)
	}
	s.logger.Info("Review flagged", "review", reviewID, "by", sess.UID)
	return nil
}

// Unflag withdraws the caller's flag.
func (s *ModerationService) Unflag(ctx context.Context, sess Session, reviewID uint) error {
	if err := sess.require(); err != nil {
		return err
	}
	if _, err := s.t.flags.Delete(ctx, store.Eq("review_id", reviewID), store.Eq("flagger_uid", sess.UID)); err != nil {
		return writeFailed("delete flag", err)
	}
	return s.syncFlagged(ctx, reviewID)
}

// ClearFlags drops every flag on a review. Moderators only.
func (s *ModerationService) ClearFlags(ctx context.Context, sess Session, reviewID uint) error {
	if err := sess.requireModerator(); err != nil {
		return err
	}
	if _, err := s.t.flags.Delete(ctx, store.Eq("review_id", reviewID)); err != nil {
		return writeFailed("clear flags", err)
	}
	return s.syncFlagged(ctx, reviewID)
}

// syncFlagged recomputes is_flagged from the remaining flags.
func (s *ModerationService) syncFlagged(ctx context.Context, reviewID uint) error {
	flagged := s.t.flags.Count(ctx, store.Eq("review_id", reviewID)) > 0
	if _, err := s.t.reviews.Update(ctx, map[string]any{"is_flagged": flagged}, store.Eq("id", reviewID)); err != nil {
		return writeFailed("update review flag", err)
	}
	return nil
}

// FlaggedReviews lists flagged reviews, newest first. Moderators only.
func (s *ModerationService) FlaggedReviews(ctx context.Context, sess Session) ([]models.Review, error) {
	if err := sess.requireModerator(); err != nil {
		return nil, err
	}
	q := store.Where(store.Eq("is_flagged", true)).OrderBy(store.Desc("created_at"), store.Desc("id"))
	return s.t.reviews.Find(ctx, q), nil
}

// FlagsFor returns the flags on one review. Moderators only.
func (s *ModerationService) FlagsFor(ctx context.Context, sess Session, reviewID uint) ([]models.ReviewFlag, error) {
	if err := sess.requireModerator(); err != nil {
		return nil, err
	}
	return s.t.flags.Find(ctx, store.Where(store.Eq("review_id", reviewID)).OrderBy(store.Asc("created_at"))), nil
}

// Hide removes a review from every aggregate view without deleting it.
func (s *ModerationService) Hide(ctx context.Context, sess Session, reviewID uint) error {
	return s.setHidden(ctx, sess, reviewID, true)
}

// Restore undoes Hide.
func (s *ModerationService) Restore(ctx context.Context, sess Session, reviewID uint) error {
	return s.setHidden(ctx, sess, reviewID, false)
}

func (s *ModerationService) setHidden(ctx context.Context, sess Session, reviewID uint, hidden bool) error {
	if err := sess.requireModerator(); err != nil {
		return err
	}
	n, err := s.t.reviews.Update(ctx, map[string]any{"hidden": hidden}, store.Eq("id", reviewID))
	if err != nil {
		return writeFailed("update review visibility", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Info("Review visibility changed", "review", reviewID, "hidden", hidden, "moderator", sess.UID)
	return nil
}

// OptOut anonymizes everything the caller has written, in all later reads.
func (s *ModerationService) OptOut(ctx context.Context, sess Session) error {
	return s.setOptedOut(ctx, sess, true)
}

func (s *ModerationService) OptIn(ctx context.Context, sess Session) error {
	return s.setOptedOut(ctx, sess, false)
}

func (s *ModerationService) setOptedOut(ctx context.Context, sess Session, opted bool) error {
	if err := sess.require(); err != nil {
		return err
	}
	n, err := s.t.users.Update(ctx, map[string]any{"opted_out": opted, "updated_at": time.Now()}, store.Eq("uid", sess.UID))
	if err != nil {
		return writeFailed("update opt-out", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// VisibleReviews drops hidden reviews (except for moderators) and reviews
// by authors the viewer blocks.
func (s *ModerationService) VisibleReviews(ctx context.Context, viewer Session, items []JoinedReview) []JoinedReview {
	edges := s.BlockedBy(ctx, viewer.UID)
	out := make([]JoinedReview, 0, len(items))
	for _, r := range items {
		if r.Hidden && !viewer.Moderator {
			continue
		}
		if IsBlocked(viewer.UID, r.authorUID, edges) {
			continue
		}
		out = append(out, r)
	}
	return out
}
