// Package errors provides the classified error type used across a build run.
//
// Every failure a build can hit is mapped onto a Category and carries enough
// context (file, field, value, ...) to locate the offending input. All
// classified errors are fatal to the run that produced them.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Category is the broad class of a build failure.
type Category string

const (
	CategoryIO           Category = "io"
	CategoryMetadata     Category = "metadata"
	CategoryTypeMismatch Category = "type_mismatch"
	CategoryTimestamp    Category = "timestamp"
	CategoryTemplate     Category = "template"
	CategoryMarkdown     Category = "markdown"
	CategoryMath         Category = "math"
	CategoryMinify       Category = "minify"
	CategorySnippet      Category = "snippet"
	CategoryLayoutCycle  Category = "layout_cycle"
	CategoryConfig       Category = "config"
	CategoryInternal     Category = "internal"
)

// Canonical context keys.
const (
	KeyFile  = "file"
	KeyField = "field"
	KeyValue = "value"
	KeyRaw   = "raw"
	KeyChain = "chain"
	KeyCall  = "call"
)

// Context holds structured details about an error.
type Context map[string]any

// Set adds or updates a context value.
func (c Context) Set(key string, value any) Context {
	if c == nil {
		c = make(Context)
	}
	c[key] = value
	return c
}

// GetString retrieves a string context value.
func (c Context) GetString(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ClassifiedError is a build error with a category and location context.
type ClassifiedError struct {
	category Category
	message  string
	cause    error
	context  Context
}

// Error renders the category, message, sorted context and cause.
func (e *ClassifiedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.category, e.message)
	if len(e.context) > 0 {
		keys := slices.Sorted(maps.Keys(e.context))
		for _, k := range keys {
			if k == KeyRaw {
				continue
			}
			fmt.Fprintf(&b, " %s=%q", k, fmt.Sprint(e.context[k]))
		}
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Unwrap implements Go 1.13+ error unwrapping.
func (e *ClassifiedError) Unwrap() error { return e.cause }

// Category returns the error category.
func (e *ClassifiedError) Category() Category { return e.category }

// Message returns the error message without context or cause.
func (e *ClassifiedError) Message() string { return e.message }

// Context returns the error context.
func (e *ClassifiedError) Context() Context { return e.context }

// Is matches another ClassifiedError with the same category and message.
func (e *ClassifiedError) Is(target error) bool {
	if other, ok := target.(*ClassifiedError); ok {
		return e.category == other.category && e.message == other.message
	}
	return false
}

// AsClassified finds the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasCategory reports whether any classified error in the chain has category.
func HasCategory(err error, category Category) bool {
	for err != nil {
		if ce, ok := err.(*ClassifiedError); ok && ce.category == category {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// GetCategory returns the category of the outermost classified error, or
// CategoryInternal.
func GetCategory(err error) Category {
	if ce, ok := AsClassified(err); ok {
		return ce.category
	}
	return CategoryInternal
}
