// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy screens text for secrets and personal data before it is
// published. Patterns are grouped into prioritized classifications and
// loaded from YAML; a default set is embedded in the binary.
package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// Engine holds compiled classifications, highest priority first. It is
// read-only after construction and safe for concurrent use.
type Engine struct {
	classifications []Classification
}

// NewEngine loads the embedded pattern set.
func NewEngine() (*Engine, error) {
	return Parse(defaultPatterns)
}

// Load reads a pattern file from disk.
func Load(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	return Parse(data)
}

// Parse builds an Engine from YAML pattern data.
func Parse(data []byte) (*Engine, error) {
	var f patternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patterns: %w", err)
	}
	if err := f.compile(); err != nil {
		return nil, err
	}
	return &Engine{classifications: f.Classifications}, nil
}

// Classifications returns the loaded classification names by priority.
func (e *Engine) Classifications() []string {
	names := make([]string, len(e.classifications))
	for i, c := range e.classifications {
		names[i] = c.Name
	}
	return names
}

// Classify returns the name of the highest-priority classification with a
// matching pattern, or Public.
func (e *Engine) Classify(data []byte) string {
	for _, c := range e.classifications {
		for _, p := range c.Patterns {
			if p.re.Match(data) {
				return c.Name
			}
		}
	}
	return Public
}

// Scan checks every line of content against every pattern.
func (e *Engine) Scan(content string) []Finding {
	var findings []Finding
	for n, line := range strings.Split(content, "\n") {
		for _, c := range e.classifications {
			for _, p := range c.Patterns {
				match := p.re.FindString(line)
				if match == "" {
					continue
				}
				findings = append(findings, Finding{
					Line:           n + 1,
					Match:          Redact(strings.TrimSpace(match)),
					Classification: c.Name,
					PatternID:      p.ID,
					Description:    p.Description,
					Confidence:     p.Confidence,
				})
			}
		}
	}
	return findings
}

// Strongest returns the most confident finding. Ties go to the earlier one.
func Strongest(findings []Finding) (Finding, bool) {
	if len(findings) == 0 {
		return Finding{}, false
	}
	best := findings[0]
	for _, f := range findings[1:] {
		if f.Confidence.rank() > best.Confidence.rank() {
			best = f
		}
	}
	return best, true
}

// Redact keeps the first and last two characters of s.
func Redact(s string) string {
	r := []rune(s)
	if len(r) <= 6 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:2]) + strings.Repeat("*", len(r)-4) + string(r[len(r)-2:])
}
