// Package privacy scans agent output for PII and collusion language. The
// pattern table is data-driven (embedded YAML) so policy changes do not touch
// code; the same compiled table serves the privacy node and the safety
// enforcer's breach check.
package privacy

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatternsYAML []byte

// patternFile is the YAML layout of a pattern table
type patternFile struct {
	PII []struct {
		Name    string `yaml:"name"`
		Pattern string `yaml:"pattern"`
	} `yaml:"pii"`
	Collusion []string `yaml:"collusion"`
}

// Finding is one pattern match in scanned text
type Finding struct {
	Kind    string `json:"kind"`    // "pii" or "collusion"
	Pattern string `json:"pattern"` // pattern name or keyword
	Excerpt string `json:"excerpt"`
}

// Scanner holds a compiled pattern table
type Scanner struct {
	pii       []compiledPattern
	collusion []string
}

type compiledPattern struct {
	name string
	re   *regexp.Regexp
}

// NewScanner compiles the embedded default pattern table
func NewScanner() (*Scanner, error) {
	return NewScannerFromYAML(defaultPatternsYAML)
}

// NewScannerFromYAML compiles a pattern table from YAML bytes
func NewScannerFromYAML(data []byte) (*Scanner, error) {
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pattern table: %w", err)
	}

	s := &Scanner{}
	for _, p := range file.PII {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p.Name, err)
		}
		s.pii = append(s.pii, compiledPattern{name: p.Name, re: re})
	}
	for _, kw := range file.Collusion {
		s.collusion = append(s.collusion, strings.ToLower(kw))
	}
	return s, nil
}

// Scan returns every PII and collusion match in text
func (s *Scanner) Scan(text string) []Finding {
	var findings []Finding

	for _, p := range s.pii {
		if match := p.re.FindString(text); match != "" {
			findings = append(findings, Finding{
				Kind:    "pii",
				Pattern: p.name,
				Excerpt: redact(match),
			})
		}
	}

	lower := strings.ToLower(text)
	for _, kw := range s.collusion {
		if strings.Contains(lower, kw) {
			findings = append(findings, Finding{
				Kind:    "collusion",
				Pattern: kw,
			})
		}
	}
	return findings
}

// ScanAll scans a batch of messages and returns the combined findings
func (s *Scanner) ScanAll(messages []string) []Finding {
	var findings []Finding
	for _, msg := range messages {
		findings = append(findings, s.Scan(msg)...)
	}
	return findings
}

// redact keeps enough of a match to identify the hit without logging the PII
func redact(match string) string {
	if len(match) <= 6 {
		return "***"
	}
	return match[:3] + "..." + match[len(match)-3:]
}
