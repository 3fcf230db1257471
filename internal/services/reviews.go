package services

import (
	"cmp"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"slices"
	"strings"

	"platerate/internal/models"
	"platerate/internal/store"
	"platerate/internal/utils"
)

const recentReviewsLimit = 50

// JoinedReview is a review together with its author as others may see it.
type JoinedReview struct {
	models.Review
	Author          models.User   `json:"author"`
	DescriptionHTML template.HTML `json:"description_html"`

	authorUID string // 原始作者 uid，匿名化后仍用于屏蔽过滤
}

// Distribution holds the fraction of reviews per star level; index 0 is one star.
type Distribution [models.MaxRating]float64

// Star returns the fraction for a 1..5 star level.
func (d Distribution) Star(n int) float64 {
	if n < models.MinRating || n > models.MaxRating {
		return 0
	}
	return d[n-1]
}

// Partition splits a user's reviews into those written and those received
// on watched plates.
type Partition struct {
	Given    []JoinedReview `json:"given"`
	Received []JoinedReview `json:"received"`
}

// CarReport is everything shown on a car's page.
type CarReport struct {
	Car          models.Car     `json:"car"`
	Reviews      []JoinedReview `json:"reviews"`
	Distribution Distribution   `json:"distribution"`
	Average      float64        `json:"average"`
	Count        int            `json:"count"`
	Watching     bool           `json:"watching"`
}

// ReviewInput is a review as submitted by a user.
type ReviewInput struct {
	Plate       string
	Rating      int
	Title       string
	Description string
	Labels      []string
}

// ReviewQuery selects reviews for listing. Empty Plate and Author list the
// most recent reviews.
type ReviewQuery struct {
	Plate  string
	Author string
	Sort   SortKey
	Order  SortOrder
}

// ReviewScheduler receives newly created reviews for fan-out.
type ReviewScheduler interface {
	Schedule(reviewID uint)
}

// ReviewService fetches, joins and aggregates reviews.
type ReviewService struct {
	t                  tables
	watch              *WatchService
	moderation         *ModerationService
	scheduler          ReviewScheduler
	excludeOwnReceived bool
	logger             *slog.Logger
}

func NewReviewService(c *store.Client, watch *WatchService, moderation *ModerationService, scheduler ReviewScheduler, excludeOwnReceived bool, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		t:                  newTables(c),
		watch:              watch,
		moderation:         moderation,
		scheduler:          scheduler,
		excludeOwnReceived: excludeOwnReceived,
		logger:             logger,
	}
}

// ByPlate returns the reviews of one plate, newest first.
func (s *ReviewService) ByPlate(ctx context.Context, plate string) ([]models.Review, error) {
	p, err := utils.ValidatePlate(plate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.t.reviews.Find(ctx, newestFirst(store.Eq("plate", p))), nil
}

// ByPlates returns the reviews of any of plates in a single query.
// Invalid plates are skipped.
func (s *ReviewService) ByPlates(ctx context.Context, plates []string) []models.Review {
	normalized := make([]string, 0, len(plates))
	for _, p := range plates {
		if n, err := utils.ValidatePlate(p); err == nil {
			normalized = append(normalized, n)
		}
	}
	return s.t.reviews.Find(ctx, newestFirst(store.In("plate", distinct(normalized))))
}

// ByAuthor returns the reviews written by uid.
func (s *ReviewService) ByAuthor(ctx context.Context, uid string) []models.Review {
	if uid == "" {
		return []models.Review{}
	}
	return s.t.reviews.Find(ctx, newestFirst(store.Eq("created_by", uid)))
}

func newestFirst(filters ...store.Filter) store.Query {
	return store.Where(filters...).OrderBy(store.Desc("created_at"), store.Desc("id"))
}

// JoinAuthors attaches authors fetched in one batched query. Reviews whose
// author does not resolve are dropped; opted-out authors are anonymized.
func (s *ReviewService) JoinAuthors(ctx context.Context, reviews []models.Review) []JoinedReview {
	uids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		uids = append(uids, r.CreatedBy)
	}
	authors := make(map[string]models.User)
	for _, u := range s.t.users.FindBy(ctx, store.In("uid", distinct(uids))) {
		authors[u.UID] = u
	}

	out := make([]JoinedReview, 0, len(reviews))
	for _, r := range reviews {
		author, ok := authors[r.CreatedBy]
		if !ok {
			s.logger.Debug("Dropping review with unknown author", "review", r.ID, "author", r.CreatedBy)
			continue
		}
		out = append(out, joinOne(r, author))
	}
	return out
}

func joinOne(r models.Review, author models.User) JoinedReview {
	j := JoinedReview{
		Review:          r,
		Author:          author.Public(),
		DescriptionHTML: utils.RenderMarkdown(r.Description),
		authorUID:       r.CreatedBy,
	}
	if author.OptedOut {
		j.CreatedBy = ""
	}
	return j
}

// RatingDistribution returns the fraction of reviews per star level.
// An empty input yields all zeros.
func RatingDistribution(reviews []models.Review) Distribution {
	var d Distribution
	if len(reviews) == 0 {
		return d
	}
	for _, r := range reviews {
		if r.Rating >= models.MinRating && r.Rating <= models.MaxRating {
			d[r.Rating-1]++
		}
	}
	for i := range d {
		d[i] /= float64(len(reviews))
	}
	return d
}

// AverageRating is the mean rating, 0 for no reviews.
func AverageRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// GivenVsReceived partitions into reviews the viewer wrote and reviews on
// watchedPlates. With excludeOwnReceived the viewer's own reviews are left
// out of Received.
func (s *ReviewService) GivenVsReceived(ctx context.Context, viewer Session, watchedPlates []string) Partition {
	given := s.JoinAuthors(ctx, s.ByAuthor(ctx, viewer.UID))

	received := make([]models.Review, 0)
	for _, r := range s.ByPlates(ctx, watchedPlates) {
		if s.excludeOwnReceived && r.CreatedBy == viewer.UID {
			continue
		}
		received = append(received, r)
	}

	return Partition{
		Given:    given,
		Received: s.moderation.VisibleReviews(ctx, viewer, s.JoinAuthors(ctx, received)),
	}
}

// MyReviews is GivenVsReceived over the viewer's own watch list.
func (s *ReviewService) MyReviews(ctx context.Context, viewer Session, key SortKey, order SortOrder) (Partition, error) {
	if err := viewer.require(); err != nil {
		return Partition{}, err
	}
	p := s.GivenVsReceived(ctx, viewer, s.watch.WatchedPlates(ctx, viewer.UID))
	p.Given = SortReviews(p.Given, key, order)
	p.Received = SortReviews(p.Received, key, order)
	return p, nil
}

// SortKey names a review ordering.
type SortKey string

const (
	SortByCreated SortKey = "created"
	SortByTitle   SortKey = "title"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSort reads user input, defaulting to newest first.
func ParseSort(key, order string) (SortKey, SortOrder) {
	k := SortByCreated
	if SortKey(strings.ToLower(key)) == SortByTitle {
		k = SortByTitle
	}
	o := Descending
	if SortOrder(strings.ToLower(order)) == Ascending {
		o = Ascending
	}
	return k, o
}

// SortReviews returns a sorted copy; the input is left untouched.
func SortReviews(items []JoinedReview, key SortKey, order SortOrder) []JoinedReview {
	out := slices.Clone(items)
	if out == nil {
		out = []JoinedReview{}
	}
	slices.SortStableFunc(out, func(a, b JoinedReview) int {
		var c int
		if key == SortByTitle {
			c = strings.Compare(a.Title, b.Title)
		} else {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order == Descending {
			return -c
		}
		return c
	})
	return out
}

// List returns visible reviews matching q.
// An opted-out author cannot be looked up by uid except by themselves or
// a moderator.
func (s *ReviewService) List(ctx context.Context, viewer Session, q ReviewQuery) ([]JoinedReview, error) {
	if q.Author != "" && q.Author != viewer.UID && !viewer.Moderator && s.t.publicUID(ctx, q.Author) == "" {
		return []JoinedReview{}, nil
	}

	var raw []models.Review
	switch {
	case q.Plate != "" && q.Author != "":
		p, err := utils.ValidatePlate(q.Plate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		raw = s.t.reviews.Find(ctx, newestFirst(store.Eq("plate", p), store.Eq("created_by", q.Author)))
	case q.Plate != "":
		var err error
		if raw, err = s.ByPlate(ctx, q.Plate); err != nil {
			return nil, err
		}
	case q.Author != "":
		raw = s.ByAuthor(ctx, q.Author)
	default:
		raw = s.t.reviews.Find(ctx, newestFirst().Take(recentReviewsLimit))
	}

	visible := s.moderation.VisibleReviews(ctx, viewer, s.JoinAuthors(ctx, raw))
	return SortReviews(visible, q.Sort, q.Order), nil
}

// Get returns one visible review.
func (s *ReviewService) Get(ctx context.Context, viewer Session, id uint) (*JoinedReview, error) {
	r := s.t.reviews.FirstBy(ctx, store.Eq("id", id))
	if r == nil || (r.Hidden && !viewer.Moderator) {
		return nil, ErrNotFound
	}
	joined := s.JoinAuthors(ctx, []models.Review{*r})
	if len(joined) == 0 {
		return nil, ErrNotFound
	}
	return &joined[0], nil
}

// Create validates and stores a review, making sure the car exists first.
// Watchers are notified asynchronously.
func (s *ReviewService) Create(ctx context.Context, sess Session, in ReviewInput) (*JoinedReview, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	r, err := models.NewReview(in.Plate, sess.UID, in.Rating, in.Title, in.Description, in.Labels)
	if err != nil {
		return nil, err
	}
	r.Title = utils.SanitizeText(r.Title)
	if r.Title == "" {
		return nil, invalid("title is blank")
	}

	if _, err := s.watch.EnsureCar(ctx, r.Plate); err != nil {
		return nil, err
	}
	if err := s.t.reviews.Insert(ctx, r); err != nil {
		return nil, writeFailed("save review", err)
	}
	s.logger.Info("Review created", "review", r.ID, "plate", r.Plate, "author", sess.UID, "rating", r.Rating)

	if s.scheduler != nil {
		s.scheduler.Schedule(r.ID)
	}

	author := s.t.users.FirstBy(ctx, store.Eq("uid", sess.UID))
	if author == nil {
		author = &models.User{UID: sess.UID, Name: sess.Name}
	}
	j := joinOne(*r, *author)
	return &j, nil
}

// CarReport assembles a car page. A plate nobody has referenced yet gets an
// empty report rather than an error.
func (s *ReviewService) CarReport(ctx context.Context, viewer Session, plate string, key SortKey, order SortOrder) (*CarReport, error) {
	p, err := utils.ValidatePlate(plate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	car := s.watch.Car(ctx, p)
	if car == nil {
		car = &models.Car{Plate: p}
	}

	raw := s.t.reviews.Find(ctx, newestFirst(store.Eq("plate", p)))
	visible := s.moderation.VisibleReviews(ctx, viewer, s.JoinAuthors(ctx, raw))
	counted := make([]models.Review, len(visible))
	for i, r := range visible {
		counted[i] = r.Review
	}

	return &CarReport{
		Car:          *car,
		Reviews:      SortReviews(visible, key, order),
		Distribution: RatingDistribution(counted),
		Average:      AverageRating(counted),
		Count:        len(counted),
		Watching:     s.watch.IsWatching(ctx, viewer.UID, p),
	}, nil
}
