// Package policy implements the tiered cancellation refund engine.
//
// A policy is a set of half-open intervals [MinHours, MaxHours) of time left before the
// service starts, each mapped to a refund percentage. At most one rule is open-ended
// (MaxHours == nil). Intervals must not overlap: containment decides, row order never does.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyPolicy   = errors.New("cancellation policy has no rules")
	ErrInvalidAmount = errors.New("amount must not be negative")
)

// ErrInvalidRule indicates a rule that cannot be evaluated
type ErrInvalidRule struct {
	Index  int
	Reason string
}

func (e ErrInvalidRule) Error() string {
	return fmt.Sprintf("invalid cancellation rule #%d: %s", e.Index, e.Reason)
}

// ErrAmbiguousPolicy indicates two rules whose intervals overlap
type ErrAmbiguousPolicy struct {
	First  Rule
	Second Rule
}

func (e ErrAmbiguousPolicy) Error() string {
	return fmt.Sprintf("cancellation rules overlap: %s and %s", e.First, e.Second)
}

// Rule maps the interval [MinHours, MaxHours) to a refund percentage
type Rule struct {
	ID            uuid.UUID `json:"id" yaml:"-"`
	MinHours      int       `json:"min_hours" yaml:"min_hours"`
	MaxHours      *int      `json:"max_hours,omitempty" yaml:"max_hours,omitempty"`
	RefundPercent int       `json:"refund_percent" yaml:"refund_percent"`
}

func (r Rule) String() string {
	if r.MaxHours == nil {
		return fmt.Sprintf("[%dh, ∞)→%d%%", r.MinHours, r.RefundPercent)
	}
	return fmt.Sprintf("[%dh, %dh)→%d%%", r.MinHours, *r.MaxHours, r.RefundPercent)
}

// IsOpenEnded reports whether the rule has no upper bound
func (r Rule) IsOpenEnded() bool {
	return r.MaxHours == nil
}

// Contains reports whether d falls in [MinHours, MaxHours)
func (r Rule) Contains(d time.Duration) bool {
	if d < time.Duration(r.MinHours)*time.Hour {
		return false
	}
	return r.MaxHours == nil || d < time.Duration(*r.MaxHours)*time.Hour
}

// overlaps reports whether two half-open intervals share any point
func (r Rule) overlaps(o Rule) bool {
	// [a,b) and [c,d) overlap when a < d and c < b, with nil meaning +inf
	aBeforeD := o.MaxHours == nil || r.MinHours < *o.MaxHours
	cBeforeB := r.MaxHours == nil || o.MinHours < *r.MaxHours
	return aBeforeD && cBeforeB
}

// Policy is a named, ordered set of cancellation rules
type Policy struct {
	ID       uuid.UUID `json:"id" yaml:"-"`
	Name     string    `json:"name" yaml:"name"`
	IsActive bool      `json:"is_active" yaml:"-"`
	Rules    []Rule    `json:"rules" yaml:"rules"`
}

// Validate rejects policies whose rules cannot be evaluated unambiguously
func (p *Policy) Validate() error {
	if len(p.Rules) == 0 {
		return ErrEmptyPolicy
	}

	openEnded := 0
	for i, r := range p.Rules {
		if r.MinHours < 0 {
			return ErrInvalidRule{Index: i, Reason: "min_hours must not be negative"}
		}
		if r.MaxHours != nil && *r.MaxHours <= r.MinHours {
			return ErrInvalidRule{Index: i, Reason: "max_hours must be greater than min_hours"}
		}
		if r.RefundPercent < 0 || r.RefundPercent > 100 {
			return ErrInvalidRule{Index: i, Reason: "refund_percent must be between 0 and 100"}
		}
		if r.IsOpenEnded() {
			openEnded++
		}
	}
	if openEnded > 1 {
		return ErrInvalidRule{Index: -1, Reason: "only one rule may be open-ended"}
	}

	sorted := p.sortedRules()
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i].overlaps(sorted[j]) {
				return ErrAmbiguousPolicy{First: sorted[i], Second: sorted[j]}
			}
		}
	}
	return nil
}

// sortedRules returns a copy ordered by MinHours ascending
func (p *Policy) sortedRules() []Rule {
	rules := make([]Rule, len(p.Rules))
	copy(rules, p.Rules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].MinHours < rules[j].MinHours })
	return rules
}

// Match returns the rule that applies to the given time left before the service.
//
// Containment wins. When nothing contains d but d is at or past every bounded rule's
// MaxHours, the open-ended tier applies. Otherwise no rule applies.
func (p *Policy) Match(d time.Duration) (*Rule, bool) {
	var open *Rule
	pastAllBounded := true
	for i := range p.Rules {
		r := p.Rules[i]
		if r.Contains(d) {
			return &r, true
		}
		if r.IsOpenEnded() {
			open = &r
			continue
		}
		if d < time.Duration(*r.MaxHours)*time.Hour {
			pastAllBounded = false
		}
	}
	if open != nil && pastAllBounded {
		return open, true
	}
	return nil, false
}
