package errors

import (
	"errors"
	"fmt"
)

// Category classifies a failure so the trading loop can apply a
// differentiated policy: skip the cycle, block the trade, or escalate.
type Category string

const (
	// CategoryConfig covers unknown strategy types and invalid
	// parameters. These fail fast at registration time and are never
	// silently defaulted.
	CategoryConfig Category = "CONFIG"

	// CategoryData covers insufficient or missing market data. The loop
	// degrades to a HOLD signal or skips the cycle.
	CategoryData Category = "DATA"

	// CategoryVenue covers exchange connectivity and order failures.
	// The operation is aborted and the loop continues; repeated venue
	// failures may escalate the engine to ERROR.
	CategoryVenue Category = "VENUE"

	// CategoryInternal covers computation errors inside the core, e.g.
	// in risk scoring. Policy is fail-closed: block the trade or return
	// the most conservative result.
	CategoryInternal Category = "INTERNAL"

	// CategoryLifecycle covers misuse of engine lifecycle operations
	// (start while running, stop while stopped). Reported to the
	// caller, never fatal.
	CategoryLifecycle Category = "LIFECYCLE"
)

// BotError is a categorized error with enough context for the loop to
// decide between skipping a cycle and escalating the engine state.
type BotError struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
}

func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable reports whether the loop may continue after this error.
// Only configuration errors are treated as non-recoverable: they mean
// the caller wired the engine incorrectly.
func (e *BotError) IsRecoverable() bool {
	return e.Category != CategoryConfig
}

// New creates a categorized error without an underlying cause.
func New(category Category, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// Wrap attaches category and context to an existing error. Returns nil
// for a nil cause so call sites can wrap unconditionally.
func Wrap(err error, category Category, component, operation string) *BotError {
	if err == nil {
		return nil
	}
	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
	}
}

// CategoryOf extracts the category from an error chain, defaulting to
// CategoryInternal for uncategorized errors (fail-closed).
func CategoryOf(err error) Category {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.Category
	}
	return CategoryInternal
}

// IsCategory reports whether any error in the chain carries the given
// category.
func IsCategory(err error, category Category) bool {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.Category == category
	}
	return false
}

func NewConfigError(component, operation, message string) *BotError {
	return New(CategoryConfig, component, operation, message)
}

func NewDataError(component, operation string, err error) *BotError {
	return Wrap(err, CategoryData, component, operation)
}

func NewVenueError(component, operation string, err error) *BotError {
	return Wrap(err, CategoryVenue, component, operation)
}

func NewInternalError(component, operation string, err error) *BotError {
	return Wrap(err, CategoryInternal, component, operation)
}

func NewLifecycleError(component, operation, message string) *BotError {
	return New(CategoryLifecycle, component, operation, message)
}
