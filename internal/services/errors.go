package services

import (
	"errors"
	"fmt"

	"platerate/internal/models"
)

// 错误分类，handler 层按类别映射 HTTP 状态码
var (
	ErrValidation   = models.ErrValidation
	ErrNotFound     = errors.New("not found")
	ErrTransport    = errors.New("store unavailable")
	ErrConsistency  = errors.New("consistency violation")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("sign-in required")
)

type plateNotFound struct{}

func (plateNotFound) Error() string { return "could not find information for this plate" }

func (plateNotFound) Is(target error) bool { return target == ErrNotFound }

// ErrPlateNotFound is the user-facing outcome of a lookup that answered
// without a usable vehicle. errors.Is(err, ErrNotFound) holds.
var ErrPlateNotFound error = plateNotFound{}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// writeFailed wraps a store write failure; the store error stays in the chain.
func writeFailed(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, what, err)
}
