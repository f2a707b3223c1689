// Package rules holds the line-level patterns used to detect
// credential-shaped strings.
package rules

import (
	"fmt"
	"math"
	"regexp"
)

// Rule is a pattern applied to a single line of text. Rules are stateless
// and safe to share across concurrent scans.
type Rule struct {
	Name  string
	Regex *regexp.Regexp
	// MinEntropy filters out matches whose value portion is not random
	// enough to be a real credential. Zero disables the check.
	MinEntropy float64
	// ValueRegex extracts the value portion of a match for the entropy
	// check; its last capture group is used. Nil means the whole match.
	ValueRegex *regexp.Regexp
}

// Match applies the rule to one line and returns the matched substring.
func (r *Rule) Match(line string) (string, bool) {
	m := r.Regex.FindString(line)
	if m == "" {
		return "", false
	}
	if r.MinEntropy > 0 && shannonEntropy(r.value(m)) < r.MinEntropy {
		return "", false
	}
	return m, true
}

func (r *Rule) value(match string) string {
	if r.ValueRegex == nil {
		return match
	}
	groups := r.ValueRegex.FindStringSubmatch(match)
	// the value is always the last capture group
	if len(groups) > 1 {
		return groups[len(groups)-1]
	}
	return match
}

// Default returns the built-in rule set.
func Default() []Rule {
	return []Rule{
		{
			Name:  "Generic Credential",
			Regex: regexp.MustCompile(`(?i)(AWS|API|SECRET|TOKEN|PASSWORD|KEY)[\s=:"]+([A-Za-z0-9-_]+)`),
		},
		{
			Name:  "Password Assignment",
			Regex: regexp.MustCompile(`(?i)(passwd|password|pass)[\s=:"]+([A-Za-z0-9-_]+)`),
		},
		{
			Name:  "GitHub Token",
			Regex: regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
		},
		{
			Name:  "JWT",
			Regex: regexp.MustCompile(`eyJ[a-zA-Z0-9]{20,}\.[a-zA-Z0-9_-]+`),
		},
		{
			Name:  "SSH Public Key",
			Regex: regexp.MustCompile(`ssh-rsa [A-Za-z0-9+/=]+`),
		},
		{
			Name:  "Database Credential",
			Regex: regexp.MustCompile(`(?i)(db_pass|db_password|db_user|access_key|secret_key)[\s=:"]+([A-Za-z0-9-_]+)`),
		},
		{
			Name:  "AWS Access Key ID",
			Regex: regexp.MustCompile(`(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`),
		},
		{
			Name:       "AWS Secret Access Key",
			Regex:      regexp.MustCompile(`(?i)aws_secret_access_key['"?]?\s*(=|:)\s*['"]?[A-Za-z0-9/+=]{40}['"]?`),
			MinEntropy: 3.5,
			ValueRegex: regexp.MustCompile(`(?i)aws_secret_access_key['"]?\s*(?:=|:)\s*['"]?([A-Za-z0-9/+=]{40})['"]?`),
		},
		{
			Name:  "Private Key",
			Regex: regexp.MustCompile(`-----BEGIN ((EC|PGP|DSA|RSA|OPENSSH) )?PRIVATE KEY( BLOCK)?-----`),
		},
	}
}

// Spec is a rule definition as it appears in configuration.
type Spec struct {
	Name       string  `yaml:"name"`
	Pattern    string  `yaml:"pattern"`
	MinEntropy float64 `yaml:"min_entropy"`
}

// FromSpecs compiles configured rule definitions.
func FromSpecs(specs []Spec) ([]Rule, error) {
	out := make([]Rule, 0, len(specs))
	for _, s := range specs {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", s.Name, err)
		}
		out = append(out, Rule{Name: s.Name, Regex: re, MinEntropy: s.MinEntropy})
	}
	return out, nil
}

// shannonEntropy calculates the Shannon entropy of a string in bits per
// character.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]float64)
	for _, ch := range s {
		freq[ch]++
	}

	entropy := 0.0
	length := float64(len(s))
	for _, count := range freq {
		p := count / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}
