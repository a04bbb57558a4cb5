// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintPrefix tags the hash algorithm so a future change is
// detectable in deployed descriptors.
const fingerprintPrefix = "blake3:"

// recipeDomainKey is the ASCII domain name "layercast.recipe",
// zero-padded to the 32 bytes BLAKE3 keyed mode requires. Changing it
// invalidates every deployed fingerprint.
var recipeDomainKey = [32]byte{
	'l', 'a', 'y', 'e', 'r', 'c', 'a', 's', 't', '.', 'r', 'e', 'c', 'i', 'p', 'e',
}

// Fingerprint hashes a recipe's text. Identical text always yields the
// same fingerprint, regardless of how the declaration that produced it
// was laid out.
func Fingerprint(recipe Recipe) string {
	hasher, err := blake3.NewKeyed(recipeDomainKey[:])
	if err != nil {
		panic("target: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.WriteString(recipe.Text())
	return fingerprintPrefix + hex.EncodeToString(hasher.Sum(nil))
}
