package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"platerate/internal/db"
	"platerate/internal/identity"
	"platerate/internal/lookup"
	"platerate/internal/models"
	"platerate/internal/store"
)

type fakeLookup struct {
	mu      sync.Mutex
	records map[string]lookup.VehicleRecord
	err     error
	calls   int
}

func (f *fakeLookup) Lookup(ctx context.Context, plate string) (lookup.VehicleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return lookup.VehicleRecord{}, f.err
	}
	rec, ok := f.records[plate]
	if !ok {
		return lookup.VehicleRecord{}, lookup.ErrNotFound
	}
	return rec, nil
}

func (f *fakeLookup) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	*Services
	lookup *fakeLookup
	t      tables
	db     *gorm.DB
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	database, err := db.Init("sqlite://:memory:")
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := store.New(database, logger, store.WithAttempts(1), store.WithTimeout(time.Second))
	fl := &fakeLookup{records: map[string]lookup.VehicleRecord{
		"AB12CD": {Plate: "AB12CD", Make: "Ford", Model: "Fiesta", Year: 2012},
		"XY99ZZ": {Plate: "XY99ZZ", Make: "Volvo", Model: "V70", Year: 2008},
	}}
	return &testEnv{Services: New(client, fl, opts, logger), lookup: fl, t: newTables(client), db: database}
}

func (e *testEnv) user(t *testing.T, uid, name string) Session {
	t.Helper()
	u, err := e.Users.SyncUser(context.Background(), identity.Identity{UID: uid, DisplayName: name, Email: uid + "@example.com"})
	if err != nil {
		t.Fatalf("SyncUser(%s): %v", uid, err)
	}
	return NewSession(u)
}

func (e *testEnv) moderator(t *testing.T, uid string) Session {
	t.Helper()
	sess := e.user(t, uid, "Mod "+uid)
	if _, err := e.t.users.Update(context.Background(), map[string]any{"is_moderator": true}, store.Eq("uid", uid)); err != nil {
		t.Fatalf("grant moderator: %v", err)
	}
	sess.Moderator = true
	return sess
}

// review inserts a review row directly, bypassing validation and notifications.
func (e *testEnv) review(t *testing.T, plate, author string, rating int, title string, at time.Time) models.Review {
	t.Helper()
	r := models.Review{Plate: plate, CreatedBy: author, Rating: rating, Title: title, CreatedAt: at}
	if err := e.t.reviews.Insert(context.Background(), &r); err != nil {
		t.Fatalf("insert review: %v", err)
	}
	return r
}

func TestSyncUserKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{})
	sess := env.user(t, "u1", "Alice")

	if err := env.Users.SetNickname(ctx, sess, "  ally "); err != nil {
		t.Fatalf("SetNickname: %v", err)
	}
	if err := env.Moderation.OptOut(ctx, sess); err != nil {
		t.Fatalf("OptOut: %v", err)
	}

	u, err := env.Users.SyncUser(ctx, identity.Identity{UID: "u1", DisplayName: "Alice B", Email: "new@example.com"})
	if err != nil {
		t.Fatalf("SyncUser: %v", err)
	}
	if u.Name != "Alice B" || u.Email != "new@example.com" {
		t.Errorf("profile not updated: %+v", u)
	}
	if u.Nickname != "ally" || !u.OptedOut {
		t.Errorf("local state overwritten: %+v", u)
	}
	if got := NewSession(u).Name; got != "ally" {
		t.Errorf("session name = %q, want nickname", got)
	}
}

func TestSyncUserRejectsEmptyUID(t *testing.T) {
	env := newTestEnv(t, Options{})
	if _, err := env.Users.SyncUser(context.Background(), identity.Identity{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSyncUserGrantsConfiguredModerators(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{ModeratorUIDs: []string{"m1", "m2"}})
	env.user(t, "m2", "Existing")
	if _, err := env.t.users.Update(ctx, map[string]any{"is_moderator": false}, store.Eq("uid", "m2")); err != nil {
		t.Fatalf("reset role: %v", err)
	}

	tests := []struct {
		uid  string
		want bool
	}{
		{"m1", true}, // 首次登录
		{"m2", true}, // 已存在的用户再次登录
		{"u1", false},
	}
	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			u, err := env.Users.SyncUser(ctx, identity.Identity{UID: tt.uid, DisplayName: tt.uid})
			if err != nil {
				t.Fatalf("SyncUser: %v", err)
			}
			if u.IsModerator != tt.want || NewSession(u).Moderator != tt.want {
				t.Errorf("moderator = %v, want %v", u.IsModerator, tt.want)
			}
		})
	}
}
