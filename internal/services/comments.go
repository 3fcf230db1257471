package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"platerate/internal/models"
	"platerate/internal/store"
	"platerate/internal/utils"
)

const maxCommentLength = 2000

// CommentNode is a comment in a review thread.
type CommentNode struct {
	models.Comment
	Author  models.User    `json:"author"`
	Tally   int            `json:"tally"`
	MyVote  int            `json:"my_vote"` // 0 未投票
	Age     string         `json:"age"`
	Replies []*CommentNode `json:"replies"`

	blocked bool
}

// VoteResult is the state of a comment after a vote.
type VoteResult struct {
	CommentID uint `json:"comment_id"`
	Value     int  `json:"value"`
	Tally     int  `json:"tally"`
}

// CommentService maintains threaded comments and their votes.
type CommentService struct {
	t          tables
	moderation *ModerationService
	logger     *slog.Logger
	now        func() time.Time
}

func NewCommentService(c *store.Client, moderation *ModerationService, logger *slog.Logger) *CommentService {
	return &CommentService{t: newTables(c), moderation: moderation, logger: logger, now: time.Now}
}

// PostComment adds a comment to a review. A parent, when given, must be a
// comment on the same review.
func (s *CommentService) PostComment(ctx context.Context, sess Session, reviewID uint, content string, parentID *uint) (*models.Comment, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, invalid("comment is blank")
	}
	content = utils.SanitizeText(content)
	if content == "" {
		return nil, invalid("comment is blank")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, invalid("comment longer than %d characters", maxCommentLength)
	}

	review := s.t.reviews.FirstBy(ctx, store.Eq("id", reviewID))
	if review == nil || review.Hidden {
		return nil, ErrNotFound
	}

	var parent *models.Comment
	if parentID != nil {
		parent = s.t.comments.FirstBy(ctx, store.Eq("id", *parentID))
		if parent == nil {
			return nil, fmt.Errorf("%w: parent comment %d does not exist", ErrConsistency, *parentID)
		}
		if parent.ReviewID != reviewID {
			return nil, fmt.Errorf("%w: parent comment %d belongs to review %d", ErrConsistency, parent.ID, parent.ReviewID)
		}
	}

	c := &models.Comment{
		ReviewID:  reviewID,
		AuthorUID: sess.UID,
		ParentID:  parentID,
		Content:   content,
	}
	if err := s.t.comments.Insert(ctx, c); err != nil {
		return nil, writeFailed("save comment", err)
	}

	s.notifyComment(ctx, sess, review, parent, c)
	return c, nil
}

// notifyComment tells the parent author about a reply, or the review author
// about a top-level comment. Failures are logged only.
func (s *CommentService) notifyComment(ctx context.Context, sess Session, review *models.Review, parent *models.Comment, c *models.Comment) {
	recipient := review.CreatedBy
	title := "New comment on your review"
	if parent != nil {
		recipient = parent.AuthorUID
		title = "New reply to your comment"
	}
	if recipient == "" || recipient == sess.UID {
		return
	}
	if IsBlocked(recipient, sess.UID, s.moderation.BlockedBy(ctx, recipient)) {
		return
	}

	n := &models.Notification{
		RecipientUID: recipient,
		ActorUID:     s.t.publicUID(ctx, sess.UID),
		Type:         models.NotificationTypeReplyComment,
		Title:        title,
		Message:      excerpt(c.Content, 120),
		Plate:        review.Plate,
		ReviewID:     review.ID,
	}
	if err := s.t.notifications.Insert(ctx, n); err != nil {
		s.logger.Warn("Failed to create comment notification", "comment", c.ID, "recipient", recipient, "error", err)
	}
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// Thread returns the visible comment tree of a review, oldest first at
// every level. Comments by authors the viewer blocks are dropped with
// their replies.
func (s *CommentService) Thread(ctx context.Context, viewer Session, reviewID uint) ([]*CommentNode, error) {
	review := s.t.reviews.FirstBy(ctx, store.Eq("id", reviewID))
	if review == nil || (review.Hidden && !viewer.Moderator) {
		return nil, ErrNotFound
	}

	comments := s.t.comments.Find(ctx, store.Where(store.Eq("review_id", reviewID)).OrderBy(store.Asc("created_at"), store.Asc("id")))
	if len(comments) == 0 {
		return []*CommentNode{}, nil
	}

	ids := make([]uint, len(comments))
	uids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		uids[i] = c.AuthorUID
	}

	tallies := make(map[uint]int)
	mine := make(map[uint]int)
	for _, v := range s.t.votes.FindBy(ctx, store.In("comment_id", ids)) {
		tallies[v.CommentID] += v.Value
		if v.VoterUID == viewer.UID {
			mine[v.CommentID] = v.Value
		}
	}

	authors := make(map[string]models.User)
	for _, u := range s.t.users.FindBy(ctx, store.In("uid", distinct(uids))) {
		authors[u.UID] = u
	}
	edges := s.moderation.BlockedBy(ctx, viewer.UID)
	now := s.now()

	nodes := make(map[uint]*CommentNode, len(comments))
	for _, c := range comments {
		author, ok := authors[c.AuthorUID]
		if !ok {
			author = models.User{OptedOut: true}
		}
		n := &CommentNode{
			Comment: c,
			Author:  author.Public(),
			Tally:   tallies[c.ID],
			MyVote:  mine[c.ID],
			Age:     utils.TimeAgo(c.CreatedAt, now),
			Replies: []*CommentNode{},
			blocked: IsBlocked(viewer.UID, c.AuthorUID, edges),
		}
		if author.OptedOut {
			n.AuthorUID = ""
		}
		nodes[c.ID] = n
	}

	roots := make([]*CommentNode, 0)
	for _, c := range comments {
		n := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return pruneBlocked(roots), nil
}

func pruneBlocked(nodes []*CommentNode) []*CommentNode {
	out := make([]*CommentNode, 0, len(nodes))
	for _, n := range nodes {
		if n.blocked {
			continue
		}
		n.Replies = pruneBlocked(n.Replies)
		out = append(out, n)
	}
	return out
}

// ByUser returns the comments uid wrote, newest first.
func (s *CommentService) ByUser(ctx context.Context, uid string) []models.Comment {
	if uid == "" {
		return []models.Comment{}
	}
	return s.t.comments.Find(ctx, store.Where(store.Eq("author_uid", uid)).OrderBy(store.Desc("created_at"), store.Desc("id")))
}

// Vote records the caller's +1 or -1 on a comment, replacing any earlier
// vote, then recomputes the tally from every vote on the comment.
func (s *CommentService) Vote(ctx context.Context, sess Session, commentID uint, value int) (VoteResult, error) {
	if err := sess.require(); err != nil {
		return VoteResult{}, err
	}
	if !models.ValidVote(value) {
		return VoteResult{}, invalid("vote must be 1 or -1")
	}
	if s.t.comments.Count(ctx, store.Eq("id", commentID)) == 0 {
		return VoteResult{}, ErrNotFound
	}

	v := &models.CommentVote{CommentID: commentID, VoterUID: sess.UID, Value: value, UpdatedAt: s.now()}
	err := s.t.votes.Upsert(ctx, v, store.Conflict{
		Columns: []string{"comment_id", "voter_uid"},
		Update:  []string{"value", "updated_at"},
	})
	if err != nil {
		return VoteResult{}, writeFailed("save vote", err)
	}

	tally := s.TallyFor(ctx, commentID)
	if _, err := s.t.comments.Update(ctx, map[string]any{"score": tally}, store.Eq("id", commentID)); err != nil {
		// score 只是缓存，投票本身已成功
		s.logger.Warn("Failed to store comment score", "comment", commentID, "error", err)
	}
	return VoteResult{CommentID: commentID, Value: value, Tally: tally}, nil
}

// TallyFor sums every vote on a comment.
func (s *CommentService) TallyFor(ctx context.Context, commentID uint) int {
	return models.Tally(s.t.votes.FindBy(ctx, store.Eq("comment_id", commentID)))
}

// RelativeAge formats a stored timestamp against the current time.
func (s *CommentService) RelativeAge(ts string) string {
	return utils.RelativeAge(ts, s.now())
}
