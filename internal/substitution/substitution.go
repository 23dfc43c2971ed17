// Package substitution holds the literal find/replace table applied to decoded filenames.
package substitution

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPattern is returned when a rule has nothing to match.
var ErrEmptyPattern = errors.New("substitution rule has an empty pattern")

// Rule replaces every occurrence of From with To.
type Rule struct {
	From string `mapstructure:"from" yaml:"from" json:"from"`
	To   string `mapstructure:"to" yaml:"to" json:"to"`
}

// Table is an ordered, immutable list of rules.
// The zero value is an empty table that leaves text unchanged.
type Table struct {
	rules []Rule
}

// NewTable builds a table from rules, preserving their order.
// The slice is copied so later changes by the caller do not leak into the table.
func NewTable(rules []Rule) (*Table, error) {
	copied := make([]Rule, len(rules))
	for i, r := range rules {
		if r.From == "" {
			return nil, fmt.Errorf("rule %d (to %q): %w", i, r.To, ErrEmptyPattern)
		}
		copied[i] = r
	}
	return &Table{rules: copied}, nil
}

// Default returns a table holding DefaultRules.
func Default() *Table {
	return &Table{rules: DefaultRules()}
}

// Apply runs every rule once, in table order, against the whole string.
// Output of one rule is visible to the rules after it but never to the rules before it.
func (t *Table) Apply(text string) string {
	if t == nil {
		return text
	}
	for _, r := range t.rules {
		text = strings.ReplaceAll(text, r.From, r.To)
	}
	return text
}

// Rules returns a copy of the table's rules in application order.
func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}
