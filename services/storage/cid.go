// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data in its
// default base32 string form.
func ComputeCID(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// ParseCID validates s as a CID.
func ParseCID(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("invalid CID %q: %w", s, err)
	}
	return c, nil
}

// VerifyCID checks that data hashes to s using the hash function s
// declares.
func VerifyCID(s string, data []byte) error {
	c, err := ParseCID(s)
	if err != nil {
		return err
	}
	prefix := c.Prefix()
	got, err := prefix.Sum(data)
	if err != nil {
		return fmt.Errorf("hash content: %w", err)
	}
	if !got.Equals(c) {
		return fmt.Errorf("%w: %s", ErrIntegrity, s)
	}
	return nil
}
