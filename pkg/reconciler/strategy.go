package reconciler

import (
	"fmt"
	"strings"
)

// StrategyType represents the type of merge strategy.
type StrategyType string

// String returns the string representation of a strategy type.
func (s StrategyType) String() string {
	return string(s)
}

// Name returns the name of the strategy type.
func (s StrategyType) Name() string {
	words := strings.Split(s.String(), "-")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

const (
	// StrategyTypeFillEmpty only writes fields that are still empty.
	StrategyTypeFillEmpty StrategyType = "fill-empty"
	// StrategyTypeFieldAuthority lets a higher ranked source replace a
	// value written by a lower ranked one.
	StrategyTypeFieldAuthority StrategyType = "field-authority"
)

// Strategy decides whether an incoming non-empty value replaces a
// different non-empty value already on the record.
type Strategy interface {
	// Type returns the strategy type
	Type() StrategyType

	// Description returns a human-readable description
	Description() string

	// ShouldOverwrite reports whether a value from a source ranked incoming
	// replaces one written by a source ranked current.
	ShouldOverwrite(incoming, current int) bool
}

type baseStrategy struct {
	typ         StrategyType
	description string
}

// Type returns the strategy type.
func (s *baseStrategy) Type() StrategyType {
	return s.typ
}

// Description returns a human-readable description.
func (s *baseStrategy) Description() string {
	return s.description
}

// FillEmptyStrategy keeps the first value written to every field.
type FillEmptyStrategy struct {
	baseStrategy
}

// NewFillEmptyStrategy creates the default strategy.
func NewFillEmptyStrategy() Strategy {
	return &FillEmptyStrategy{baseStrategy{
		typ:         StrategyTypeFillEmpty,
		description: "Fills empty fields and keeps the first value seen",
	}}
}

// ShouldOverwrite never replaces an existing value.
func (s *FillEmptyStrategy) ShouldOverwrite(_, _ int) bool {
	return false
}

// AuthorityStrategy replaces values written by lower ranked sources.
type AuthorityStrategy struct {
	baseStrategy
}

// NewAuthorityStrategy creates a strict precedence strategy.
func NewAuthorityStrategy() Strategy {
	return &AuthorityStrategy{baseStrategy{
		typ:         StrategyTypeFieldAuthority,
		description: "Replaces values written by lower precedence sources",
	}}
}

// ShouldOverwrite replaces a value only when the incoming source ranks
// strictly higher.
func (s *AuthorityStrategy) ShouldOverwrite(incoming, current int) bool {
	return incoming > current
}

// ParseStrategy returns the strategy registered under name.
func ParseStrategy(name string) (Strategy, error) {
	switch StrategyType(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyTypeFillEmpty:
		return NewFillEmptyStrategy(), nil
	case StrategyTypeFieldAuthority, "authority", "precedence":
		return NewAuthorityStrategy(), nil
	}
	return nil, fmt.Errorf("unknown merge strategy %q", name)
}
