package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder accumulates context onto an error before marking it with a
// sentinel. It is deliberately not an error itself: a chain that never
// reaches Mark produces nothing, so the sentinel can't be forgotten.
type ErrorBuilder struct {
	err error
}

// NewError starts a builder chain from a fresh message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a builder chain wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithHint attaches the user-facing message.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf attaches a formatted user-facing message.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured key-value context that survives
// into reports. Details that fail to encode are dropped rather than
// replacing the error.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	encoded, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, "__json__:%s", errors.Safe(string(encoded)))
	return b
}

// Mark ties the error to a sentinel and ends the chain.
func (b *ErrorBuilder) Mark(sentinel error) error {
	return errors.Mark(b.err, sentinel)
}
