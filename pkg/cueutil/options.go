// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize caps the documents accepted by Decode (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	// decodeOptions holds the knobs applied by Decode.
	decodeOptions struct {
		maxFileSize int64
		concrete    bool
		filename    string
		json        bool
	}

	// Option configures Decode.
	Option func(*decodeOptions)
)

func defaultOptions() decodeOptions {
	return decodeOptions{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(size int64) Option {
	return func(o *decodeOptions) {
		o.maxFileSize = size
	}
}

// WithConcrete controls whether every value must be concrete after
// unification. Configuration files pass false so that unset optional fields
// are accepted.
func WithConcrete(concrete bool) Option {
	return func(o *decodeOptions) {
		o.concrete = concrete
	}
}

// WithFilename names the document in error messages.
func WithFilename(name string) Option {
	return func(o *decodeOptions) {
		o.filename = name
	}
}

// WithJSON parses the document with JSON semantics instead of compiling it as
// CUE source, so CUE-only syntax (comments, unquoted keys) is rejected.
func WithJSON() Option {
	return func(o *decodeOptions) {
		o.json = true
	}
}
