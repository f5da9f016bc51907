package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed caller input: bad configuration JSON,
	// missing required fields, empty uploads. Surfaced before a job exists.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks missing resources: unknown jobs, transcripts, or a
	// speaker with no role mapping.
	ErrNotFound = errors.New("not found")
	// ErrProvider marks failures reported by an external speech service:
	// non-2xx responses, malformed payloads, explicit failure statuses.
	ErrProvider = errors.New("provider error")
	// ErrTimeout marks an exceeded polling deadline.
	ErrTimeout = errors.New("timeout")
	// ErrComposition marks audio assembly failures: empty clip payloads,
	// exporting an empty timeline, undecodable audio.
	ErrComposition = errors.New("composition error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProvider
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRequestError reports whether an error should be returned to the submitting
// caller directly instead of failing an asynchronous job.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
