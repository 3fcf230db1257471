package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"platerate/internal/lookup"
	"platerate/internal/models"
	"platerate/internal/store"
	"platerate/internal/utils"
)

// WatchResult is the outcome of a watch request.
type WatchResult struct {
	Car             models.Car `json:"car"`
	AlreadyWatching bool       `json:"already_watching"`
}

// WatchService owns the user/plate watch relation and car materialization.
type WatchService struct {
	t            tables
	lookup       lookup.Lookup
	refreshAfter time.Duration // 0 表示不刷新
	logger       *slog.Logger
	now          func() time.Time
}

func NewWatchService(c *store.Client, lk lookup.Lookup, refreshAfter time.Duration, logger *slog.Logger) *WatchService {
	return &WatchService{
		t:            newTables(c),
		lookup:       lk,
		refreshAfter: refreshAfter,
		logger:       logger,
		now:          time.Now,
	}
}

// Watch subscribes the caller to plate. The car row is written before the
// watch row; if that write fails no watch is created.
func (s *WatchService) Watch(ctx context.Context, sess Session, plate string) (WatchResult, error) {
	if err := sess.require(); err != nil {
		return WatchResult{}, err
	}
	p, err := utils.ValidatePlate(plate)
	if err != nil {
		return WatchResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if existing := s.t.watched.FirstBy(ctx, store.Eq("user_id", sess.UID), store.Eq("plate", p)); existing != nil {
		car, err := s.materialize(ctx, p)
		if err != nil {
			// the watch exists already, a failed lookup should not hide that
			s.logger.Warn("Watched car could not be loaded", "plate", p, "error", err)
			car = &models.Car{Plate: p}
		}
		return WatchResult{Car: *car, AlreadyWatching: true}, nil
	}

	car, err := s.materialize(ctx, p)
	if err != nil {
		return WatchResult{}, err
	}

	w := &models.WatchedCar{UserID: sess.UID, Plate: p}
	if err := s.t.watched.Upsert(ctx, w, store.Conflict{Columns: []string{"user_id", "plate"}}); err != nil {
		return WatchResult{}, writeFailed("save watch", err)
	}
	s.logger.Info("Plate watched", "uid", sess.UID, "plate", p)
	return WatchResult{Car: *car}, nil
}

// Unwatch removes the watch; unwatching a plate that is not watched succeeds.
func (s *WatchService) Unwatch(ctx context.Context, sess Session, plate string) error {
	if err := sess.require(); err != nil {
		return err
	}
	p, err := utils.ValidatePlate(plate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.t.watched.Delete(ctx, store.Eq("user_id", sess.UID), store.Eq("plate", p)); err != nil {
		return writeFailed("delete watch", err)
	}
	return nil
}

// WatchedPlates returns the plates uid watches.
func (s *WatchService) WatchedPlates(ctx context.Context, uid string) []string {
	rows := s.t.watched.FindBy(ctx, store.Eq("user_id", uid))
	plates := make([]string, 0, len(rows))
	for _, w := range rows {
		plates = append(plates, w.Plate)
	}
	return plates
}

// ListWatched returns the cars uid watches, order unspecified.
func (s *WatchService) ListWatched(ctx context.Context, uid string) []models.Car {
	return s.t.cars.FindBy(ctx, store.In("plate", s.WatchedPlates(ctx, uid)))
}

// IsWatching reports whether uid watches the normalized plate.
func (s *WatchService) IsWatching(ctx context.Context, uid, plate string) bool {
	if uid == "" {
		return false
	}
	return s.t.watched.Count(ctx, store.Eq("user_id", uid), store.Eq("plate", plate)) > 0
}

// Watchers returns the uids watching plate.
func (s *WatchService) Watchers(ctx context.Context, plate string) []string {
	rows := s.t.watched.FindBy(ctx, store.Eq("plate", plate))
	uids := make([]string, 0, len(rows))
	for _, w := range rows {
		uids = append(uids, w.UserID)
	}
	return distinct(uids)
}

// Car returns the stored car for an already normalized plate, or nil.
func (s *WatchService) Car(ctx context.Context, plate string) *models.Car {
	return s.t.cars.FirstBy(ctx, store.Eq("plate", plate))
}

// EnsureCar makes sure a car row exists for plate. Unlike Watch it does not
// require the lookup to know the plate: an unknown plate gets a bare row.
func (s *WatchService) EnsureCar(ctx context.Context, plate string) (*models.Car, error) {
	car, err := s.materialize(ctx, plate)
	if err == nil {
		return car, nil
	}
	if !errors.Is(err, ErrNotFound) && !isLookupFailure(err) {
		return nil, err
	}

	bare := &models.Car{Plate: plate}
	if err := s.t.cars.Upsert(ctx, bare, store.Conflict{Columns: []string{"plate"}}); err != nil {
		return nil, writeFailed("save car", err)
	}
	if stored := s.Car(ctx, plate); stored != nil {
		return stored, nil
	}
	return bare, nil
}

// lookupError marks a transport failure of the enrichment lookup, as
// opposed to a store write failure.
type lookupError struct{ err error }

func (e *lookupError) Error() string { return "vehicle lookup: " + e.err.Error() }

func (e *lookupError) Unwrap() []error { return []error{ErrTransport, e.err} }

func isLookupFailure(err error) bool {
	var le *lookupError
	return errors.As(err, &le)
}

// materialize returns the car row for plate, creating it from the lookup
// when absent and refreshing it when stale.
func (s *WatchService) materialize(ctx context.Context, plate string) (*models.Car, error) {
	if car := s.Car(ctx, plate); car != nil {
		if car.IsStale(s.refreshAfter, s.now()) {
			return s.refresh(ctx, car), nil
		}
		return car, nil
	}

	rec, err := s.lookup.Lookup(ctx, plate)
	if err != nil {
		if errors.Is(err, lookup.ErrNotFound) {
			return nil, ErrPlateNotFound
		}
		return nil, &lookupError{err: err}
	}
	if rec.Plate == "" {
		return nil, ErrPlateNotFound
	}

	car := s.carFromRecord(plate, rec)
	if err := s.upsertCar(ctx, car); err != nil {
		return nil, err
	}
	return car, nil
}

// refresh re-runs the lookup for a stale car; on any failure the old row stands.
func (s *WatchService) refresh(ctx context.Context, car *models.Car) *models.Car {
	rec, err := s.lookup.Lookup(ctx, car.Plate)
	if err != nil || rec.Plate == "" {
		s.logger.Info("Stale car refresh skipped", "plate", car.Plate, "error", err)
		return car
	}
	fresh := s.carFromRecord(car.Plate, rec)
	if err := s.upsertCar(ctx, fresh); err != nil {
		return car
	}
	fresh.CreatedAt = car.CreatedAt
	return fresh
}

func (s *WatchService) carFromRecord(plate string, rec lookup.VehicleRecord) *models.Car {
	now := s.now()
	return &models.Car{
		Plate:         plate,
		Make:          rec.Make,
		Model:         rec.Model,
		Year:          rec.Year,
		LastCheckedAt: now,
		UpdatedAt:     now,
	}
}

func (s *WatchService) upsertCar(ctx context.Context, car *models.Car) error {
	err := s.t.cars.Upsert(ctx, car, store.Conflict{
		Columns: []string{"plate"},
		Update:  []string{"make", "model", "year", "last_checked_at", "updated_at"},
	})
	if err != nil {
		return writeFailed("save car", err)
	}
	return nil
}
