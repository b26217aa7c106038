package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category Category
	message  string
	cause    error
	context  Context
}

// New creates a builder for a fresh error.
func New(category Category, message string) *ErrorBuilder {
	return &ErrorBuilder{category: category, message: message, context: make(Context)}
}

// Wrap creates a builder around an existing error.
func Wrap(err error, category Category, message string) *ErrorBuilder {
	return &ErrorBuilder{category: category, message: message, cause: err, context: make(Context)}
}

// With adds a context key-value pair.
func (b *ErrorBuilder) With(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// File records the source file.
func (b *ErrorBuilder) File(path string) *ErrorBuilder { return b.With(KeyFile, path) }

// Field records the offending metadata key.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder { return b.With(KeyField, name) }

// Value records the offending value.
func (b *ErrorBuilder) Value(v any) *ErrorBuilder { return b.With(KeyValue, v) }

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for the recurring build failures.

// IOError reports a missing or unreadable file.
func IOError(err error, path string) *ClassifiedError {
	return Wrap(err, CategoryIO, "cannot read file").File(path).Build()
}

// MetadataError reports a malformed metadata block.
func MetadataError(err error, path, raw string) *ClassifiedError {
	return Wrap(err, CategoryMetadata, "cannot parse metadata").File(path).With(KeyRaw, raw).Build()
}

// TypeMismatchError reports a recognized key carrying a value of the wrong kind.
func TypeMismatchError(err error, path, field string, value any) *ClassifiedError {
	return Wrap(err, CategoryTypeMismatch, "metadata key has the wrong type").
		File(path).Field(field).Value(value).Build()
}
