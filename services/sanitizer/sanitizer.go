// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sanitizer scans user chat input for known prompt-injection
// signatures.
//
// # Description
//
// The scanner is advisory only: it never refuses or rewrites a message. It
// returns the original text together with a flag and the list of signature
// IDs that matched, for logging and telemetry. The signature set is baked
// into the binary via go:embed so it cannot be altered on the host without
// recompiling.
//
// # Limitations
//
// Signature matching catches known phrasings, not semantic injection or
// creatively encoded attacks. That is an accepted limitation of this
// deployment, not a defect to patch here.
package sanitizer

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed injection_signatures.yaml
var embeddedSignatures []byte

// signatureFile mirrors the embedded YAML layout.
type signatureFile struct {
	Signatures []Signature `yaml:"signatures"`
}

// Signature is one injection pattern.
type Signature struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Regex       string `yaml:"regex"`

	compiled *regexp.Regexp
}

// Result is the outcome of scanning one message.
//
// CleanText is always byte-identical to the input; the scanner never
// mutates a message.
type Result struct {
	CleanText       string
	Flagged         bool
	MatchedPatterns []string
}

// Scanner holds the compiled signature set.
//
// Thread Safety: Scanner is immutable after construction and safe for
// concurrent use without locking.
type Scanner struct {
	signatures []Signature
}

// NewScanner compiles the embedded signature set.
//
// # Outputs
//
//   - *Scanner: The ready scanner.
//   - error: Non-nil if the embedded YAML is malformed or a regex does not
//     compile. Both indicate a broken build, not a runtime condition.
func NewScanner() (*Scanner, error) {
	var file signatureFile
	if err := yaml.Unmarshal(embeddedSignatures, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded signature file: %w", err)
	}
	for i := range file.Signatures {
		sig := &file.Signatures[i]
		re, err := regexp.Compile(sig.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile signature %q: %w", sig.ID, err)
		}
		sig.compiled = re
	}
	return &Scanner{signatures: file.Signatures}, nil
}

// Sanitize scans raw against every signature.
//
// # Description
//
// Cannot fail: absence of any match yields Flagged=false and an empty
// pattern list. Callers are responsible for logging flagged messages; the
// scanner itself produces no side effects.
//
// # Inputs
//
//   - raw: The unvalidated user message (length-checked upstream).
//
// # Outputs
//
//   - Result: Original text, flag, and matched signature IDs.
func (s *Scanner) Sanitize(raw string) Result {
	result := Result{CleanText: raw}
	for _, sig := range s.signatures {
		if sig.compiled.MatchString(raw) {
			result.Flagged = true
			result.MatchedPatterns = append(result.MatchedPatterns, sig.ID)
		}
	}
	return result
}
