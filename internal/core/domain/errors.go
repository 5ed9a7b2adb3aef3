package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
	ErrDuplicateContent = errors.New("duplicate content")
	ErrRateLimited      = errors.New("rate limited")
	ErrOverloaded       = errors.New("overloaded")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// DuplicateContentError reports the document that already holds the same content hash.
type DuplicateContentError struct {
	ContentHash  string
	ExistingID   string
	ExistingName string
}

func (e *DuplicateContentError) Error() string {
	if e == nil {
		return ErrDuplicateContent.Error()
	}
	if e.ExistingID == "" {
		return fmt.Sprintf("%s: hash %s", ErrDuplicateContent, e.ContentHash)
	}
	return fmt.Sprintf("%s: already indexed as %q (%s)", ErrDuplicateContent, e.ExistingName, e.ExistingID)
}

func (e *DuplicateContentError) Is(target error) bool {
	return target == ErrDuplicateContent
}

// RateLimitError carries the wait before the requester may retry.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
