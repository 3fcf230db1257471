package services

import (
	"platerate/internal/models"
)

// Session is the signed-in caller, passed explicitly into every operation
// that acts on behalf of a user.
type Session struct {
	UID       string
	Name      string
	Moderator bool
}

// NewSession builds the session for a stored user.
func NewSession(u *models.User) Session {
	if u == nil {
		return Session{}
	}
	return Session{UID: u.UID, Name: u.DisplayName(), Moderator: u.IsModerator}
}

// Anonymous reports whether nobody is signed in.
func (s Session) Anonymous() bool { return s.UID == "" }

func (s Session) require() error {
	if s.Anonymous() {
		return ErrUnauthorized
	}
	return nil
}

func (s Session) requireModerator() error {
	if err := s.require(); err != nil {
		return err
	}
	if !s.Moderator {
		return ErrForbidden
	}
	return nil
}
