// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// Result is a successfully validated document.
type Result[T any] struct {
	// Value is the decoded Go value.
	Value *T

	// Unified is the document unified with its schema definition.
	Unified cue.Value
}

// Decode validates data against the definition named by def inside schema and
// decodes the unified value into T.
func Decode[T any](schema, data []byte, def string, opts ...Option) (*Result[T], error) {
	unified, err := Unify(schema, data, def, opts...)
	if err != nil {
		return nil, err
	}

	options := applyOptions(opts)

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, options.filename)
	}

	return &Result[T]{Value: &out, Unified: unified}, nil
}

// Unify compiles schema and data, unifies data with def, and validates the
// result. It is the building block for callers that decode into something
// other than a struct (for example a map merged into viper).
func Unify(schema, data []byte, def string, opts ...Option) (cue.Value, error) {
	options := applyOptions(opts)

	if err := CheckFileSize(data, options.maxFileSize, options.filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: compile schema: %w", schemaValue.Err())
	}

	root := schemaValue.LookupPath(cue.ParsePath(def))
	if root.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", def, root.Err())
	}

	docValue, err := compileDocument(ctx, data, options)
	if err != nil {
		return cue.Value{}, err
	}

	unified := root.Unify(docValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return cue.Value{}, FormatError(err, options.filename)
	}

	return unified, nil
}

func compileDocument(ctx *cue.Context, data []byte, options decodeOptions) (cue.Value, error) {
	if options.json {
		expr, err := cuejson.Extract(options.filename, data)
		if err != nil {
			return cue.Value{}, FormatError(err, options.filename)
		}
		v := ctx.BuildExpr(expr)
		if v.Err() != nil {
			return cue.Value{}, FormatError(v.Err(), options.filename)
		}
		return v, nil
	}

	v := ctx.CompileBytes(data, cue.Filename(options.filename))
	if v.Err() != nil {
		return cue.Value{}, FormatError(v.Err(), options.filename)
	}
	return v, nil
}

func applyOptions(opts []Option) decodeOptions {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.filename == "" {
		options.filename = "<input>"
	}
	return options
}

// CheckFileSize rejects documents larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
