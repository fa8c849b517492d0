// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"os"

	"filippo.io/age"
)

// LoadIdentities reads age identities from a key file, one per line,
// in the format age-keygen writes.
func LoadIdentities(path string) ([]age.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer f.Close()
	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return identities, nil
}

// ParseRecipients parses age recipient strings (age1... public keys).
func ParseRecipients(specs []string) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(specs))
	for _, spec := range specs {
		r, err := age.ParseX25519Recipient(spec)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient %q: %w", spec, err)
		}
		recipients = append(recipients, r)
	}
	return recipients, nil
}
