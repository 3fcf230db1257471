package utils

import (
	"errors"
	"strings"
	"unicode"
)

const MaxPlateLength = 6

var (
	ErrPlateEmpty   = errors.New("plate is empty")
	ErrPlateTooLong = errors.New("plate is longer than 6 characters")
	ErrPlateChars   = errors.New("plate must be letters and digits only")
)

// NormalizePlate 车牌标准化：去掉所有空白并转为大写
func NormalizePlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range plate {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ValidatePlate normalizes plate and checks it is 1-6 ASCII letters or digits.
func ValidatePlate(plate string) (string, error) {
	p := NormalizePlate(plate)
	if p == "" {
		return "", ErrPlateEmpty
	}
	if len(p) > MaxPlateLength {
		return "", ErrPlateTooLong
	}
	for _, r := range p {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return "", ErrPlateChars
		}
	}
	return p, nil
}
