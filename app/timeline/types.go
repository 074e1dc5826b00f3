package timeline

import (
	"context"
	"errors"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

// ErrNormalization is returned when a normalizer receives no table at all.
// Individual malformed fields never fail a run; they fall back to defaults.
var ErrNormalization = errors.New("normalization failure")

// Milestone is one normalized timeline entry.
type Milestone struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Date          *string  `json:"date"`
	Title         string   `json:"title"`
	Subtitle      *string  `json:"subtitle"`
	Description   *string  `json:"description"`
	Status        string   `json:"status"`
	IsRisk        bool     `json:"isRisk"`
	IsCatalyst    bool     `json:"isCatalyst"`
	IsOutcome     bool     `json:"isOutcome"`
	IsStatutory   bool     `json:"isStatutory"`
	CatalystOrder *int     `json:"catalystOrder"`
	Details       *Details `json:"details,omitempty"`
}

// HasDetails reports whether the milestone carries a detail panel.
func (m Milestone) HasDetails() bool {
	return m.Details != nil
}

// Dataset is what the presentation layer renders. It is never mutated after
// being returned from a Loader.
type Dataset struct {
	LastUpdated string      `json:"lastUpdated"`
	Milestones  []Milestone `json:"milestones"`
}

// Clone copies the dataset so the copy shares no pointers with the original
// except for Details, which has no exported mutators.
func (d *Dataset) Clone() *Dataset {
	clone := &Dataset{
		LastUpdated: d.LastUpdated,
		Milestones:  make([]Milestone, len(d.Milestones)),
	}
	for i, m := range d.Milestones {
		m.Date = cloneString(m.Date)
		m.Subtitle = cloneString(m.Subtitle)
		m.Description = cloneString(m.Description)
		if m.CatalystOrder != nil {
			order := *m.CatalystOrder
			m.CatalystOrder = &order
		}
		clone.Milestones[i] = m
	}
	return clone
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

type FetcherInterface interface {
	Run(ctx context.Context, milestonesURL, configURL string) (*sheet.Payloads, error)
}

var _ FetcherInterface = (*sheet.Fetcher)(nil)

// Observer receives the outcome of every load attempt.
type Observer interface {
	ObserveLoad(result LoadResult)
}
