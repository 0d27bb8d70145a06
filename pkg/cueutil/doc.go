// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates documents against embedded CUE schemas.
//
// Every document that extpack reads (the project descriptor and the optional
// extpack.cue configuration) goes through the same flow:
//
//  1. Compile the embedded schema
//  2. Compile the document and unify it with the schema definition
//  3. Validate and decode into a Go value
//
// JSON is a subset of CUE, so package.json descriptors are compiled directly
// without a separate JSON decoding step.
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schema []byte
//
//	res, err := cueutil.Decode[Manifest](schema, data, "#Manifest",
//	    cueutil.WithFilename("package.json"))
//	if err != nil {
//	    return nil, err // error carries the offending field path
//	}
//	return res.Value, nil
package cueutil
