package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"platerate/internal/identity"
	"platerate/internal/models"
	"platerate/internal/store"
)

const maxNicknameLength = 50

// UserService keeps the users table in step with the identity provider.
type UserService struct {
	t          tables
	moderators map[string]bool
	logger     *slog.Logger
}

// NewUserService grants the moderator role to moderatorUIDs as they sign in.
func NewUserService(c *store.Client, moderatorUIDs []string, logger *slog.Logger) *UserService {
	mods := make(map[string]bool, len(moderatorUIDs))
	for _, uid := range moderatorUIDs {
		mods[uid] = true
	}
	return &UserService{t: newTables(c), moderators: mods, logger: logger}
}

// SyncUser upserts the provider profile. Nickname, moderator and opt-out
// state are owned locally and never overwritten, except that a configured
// moderator uid is always granted the role.
func (s *UserService) SyncUser(ctx context.Context, id identity.Identity) (*models.User, error) {
	if strings.TrimSpace(id.UID) == "" {
		return nil, invalid("identity has no uid")
	}
	u := &models.User{
		UID:        id.UID,
		Name:       strings.TrimSpace(id.DisplayName),
		Email:      strings.TrimSpace(id.Email),
		PictureURL: id.AvatarURL,
		UpdatedAt:  time.Now(),
	}
	update := []string{"name", "email", "picture_url", "updated_at"}
	if s.moderators[id.UID] {
		u.IsModerator = true
		update = append(update, "is_moderator")
	}
	err := s.t.users.Upsert(ctx, u, store.Conflict{
		Columns: []string{"uid"},
		Update:  update,
	})
	if err != nil {
		return nil, writeFailed("save user", err)
	}

	if stored := s.Get(ctx, id.UID); stored != nil {
		return stored, nil
	}
	return u, nil
}

// Get returns the user, or nil when unknown.
func (s *UserService) Get(ctx context.Context, uid string) *models.User {
	if uid == "" {
		return nil
	}
	return s.t.users.FirstBy(ctx, store.Eq("uid", uid))
}

func (s *UserService) SetNickname(ctx context.Context, sess Session, nickname string) error {
	if err := sess.require(); err != nil {
		return err
	}
	nickname = strings.TrimSpace(nickname)
	if utf8.RuneCountInString(nickname) > maxNicknameLength {
		return invalid("nickname longer than %d characters", maxNicknameLength)
	}
	n, err := s.t.users.Update(ctx, map[string]any{"nickname": nickname, "updated_at": time.Now()}, store.Eq("uid", sess.UID))
	if err != nil {
		return writeFailed("update nickname", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
