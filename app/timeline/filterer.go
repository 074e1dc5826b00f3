package timeline

import (
	"fmt"
	"slices"
	"strings"
)

type Filter struct {
	Field    string
	Includes []string
	Excludes []string
}

var filterFields = map[string]bool{
	"status": true,
	"type":   true,
	"flag":   true,
}

var flagNames = []string{"risk", "catalyst", "outcome", "statutory"}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Validate rejects filters on unknown fields and filters with no rules.
func (f *Filterer) Validate(filters []Filter) error {
	for i, filter := range filters {
		if !filterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
		if filter.Field == "flag" {
			for _, name := range slices.Concat(filter.Includes, filter.Excludes) {
				if !slices.Contains(flagNames, strings.ToLower(name)) {
					return fmt.Errorf("invalid flag at index %d: %s", i, name)
				}
			}
		}
	}
	return nil
}

// Run returns the milestones matching every filter, in their original order.
// The input slice is not modified.
func (f *Filterer) Run(milestones []Milestone, filters []Filter) []Milestone {
	if len(filters) == 0 {
		return milestones
	}

	filtered := make([]Milestone, 0, len(milestones))
	for _, milestone := range milestones {
		if f.matches(milestone, filters) {
			filtered = append(filtered, milestone)
		}
	}
	return filtered
}

func (f *Filterer) matches(milestone Milestone, filters []Filter) bool {
	for _, filter := range filters {
		values := f.getFieldValues(milestone, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesAny(values, exclude) {
				return false
			}
		}

		if len(filter.Includes) > 0 && !slices.ContainsFunc(filter.Includes, func(include string) bool {
			return f.matchesAny(values, include)
		}) {
			return false
		}
	}
	return true
}

func (f *Filterer) matchesAny(values []string, pattern string) bool {
	return slices.ContainsFunc(values, func(value string) bool {
		return strings.EqualFold(value, pattern)
	})
}

func (f *Filterer) getFieldValues(milestone Milestone, field string) []string {
	switch field {
	case "status":
		return []string{milestone.Status}
	case "type":
		return []string{milestone.Type}
	case "flag":
		var flags []string
		if milestone.IsRisk {
			flags = append(flags, "risk")
		}
		if milestone.IsCatalyst {
			flags = append(flags, "catalyst")
		}
		if milestone.IsOutcome {
			flags = append(flags, "outcome")
		}
		if milestone.IsStatutory {
			flags = append(flags, "statutory")
		}
		return flags
	default:
		return nil
	}
}
