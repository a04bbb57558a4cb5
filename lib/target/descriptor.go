// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DescriptorFormat is the current descriptor format version. Deployed
// versions carrying any other format are stale.
const DescriptorFormat = 1

// MaxDescriptorLength is the longest description a layer version
// accepts.
const MaxDescriptorLength = 256

// Descriptor identifies what a published layer version was built from.
// It is stored, JSON encoded, as the version's description.
type Descriptor struct {
	Format       int    `json:"format"`
	RecipeHash   string `json:"recipe_hash"`
	Package      string `json:"package"`
	Runtime      string `json:"runtime"`
	Version      string `json:"version"`
	Architecture string `json:"architecture"`
}

// Encode returns the compact JSON form. Field order is fixed, so equal
// descriptors encode to equal strings.
func (d Descriptor) Encode() string {
	data, err := json.Marshal(d)
	if err != nil {
		panic("target: encoding descriptor: " + err.Error())
	}
	return string(data)
}

// ErrUnrecognizedDescriptor is returned by ParseDescriptor for any
// description that is not a current-format descriptor.
var ErrUnrecognizedDescriptor = errors.New("unrecognized layer descriptor")

// ParseDescriptor decodes a layer version description. Descriptions that
// are not JSON, carry unknown fields, omit the format, or use another
// format version are rejected with ErrUnrecognizedDescriptor.
func ParseDescriptor(description string) (Descriptor, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(description)))
	decoder.DisallowUnknownFields()

	var descriptor Descriptor
	if err := decoder.Decode(&descriptor); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrUnrecognizedDescriptor, err)
	}
	if decoder.More() {
		return Descriptor{}, fmt.Errorf("%w: trailing data after descriptor", ErrUnrecognizedDescriptor)
	}
	if descriptor.Format != DescriptorFormat {
		return Descriptor{}, fmt.Errorf("%w: format %d, want %d", ErrUnrecognizedDescriptor, descriptor.Format, DescriptorFormat)
	}
	return descriptor, nil
}
