// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Public is the classification of content no pattern matched.
const Public = "public"

type Confidence string

const (
	Low    Confidence = "low"
	Medium Confidence = "medium"
	High   Confidence = "high"
)

func (c Confidence) rank() int {
	switch c {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	}
	return 0
}

// AtLeast reports whether c is as confident as min.
func (c Confidence) AtLeast(min Confidence) bool {
	return c.rank() >= min.rank()
}

func (c *Confidence) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch in := Confidence(s); in {
	case High, Medium, Low:
		*c = in
		return nil
	default:
		return fmt.Errorf("invalid confidence %q", s)
	}
}

type patternFile struct {
	Classifications []Classification `yaml:"classifications"`
}

type Classification struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Priority    int       `yaml:"priority"`
	Patterns    []Pattern `yaml:"patterns"`
}

type Pattern struct {
	ID          string     `yaml:"id"`
	Description string     `yaml:"description"`
	Regex       string     `yaml:"regex"`
	Confidence  Confidence `yaml:"confidence"`
	re          *regexp.Regexp
}

func (f *patternFile) compile() error {
	if len(f.Classifications) == 0 {
		return fmt.Errorf("no classifications defined")
	}
	for i := range f.Classifications {
		c := &f.Classifications[i]
		if c.Name == "" {
			return fmt.Errorf("classification %d has no name", i)
		}
		for j := range c.Patterns {
			p := &c.Patterns[j]
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return fmt.Errorf("pattern %s: %w", p.ID, err)
			}
			p.re = re
		}
	}
	sort.SliceStable(f.Classifications, func(i, j int) bool {
		return f.Classifications[i].Priority > f.Classifications[j].Priority
	})
	return nil
}

// Finding is one pattern match. Match is redacted so findings can be logged.
type Finding struct {
	Line           int        `json:"line"`
	Match          string     `json:"match"`
	Classification string     `json:"classification"`
	PatternID      string     `json:"pattern_id"`
	Description    string     `json:"description"`
	Confidence     Confidence `json:"confidence"`
}
