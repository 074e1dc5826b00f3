package timeline

import (
	"fmt"
	"log/slog"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run converts milestone rows into milestones, keeping row order. Rows
// without an id are dropped, as are rows repeating an id already seen.
func (n *Normalizer) Run(table *sheet.RawTable) ([]Milestone, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: milestones table is missing", ErrNormalization)
	}

	records := table.Records()
	milestones := make([]Milestone, 0, len(records))
	seen := make(map[string]int, len(records))
	dropped := 0

	for i, record := range records {
		if id, _ := record.Value("id"); isBlank(id) {
			slog.Debug("Dropping milestone row without id", "row", i)
			dropped++
			continue
		}

		milestone := n.normalizeRecord(record)
		if first, ok := seen[milestone.ID]; ok {
			slog.Warn("Dropping milestone row with duplicate id", "row", i, "id", milestone.ID, "first_row", first)
			dropped++
			continue
		}
		seen[milestone.ID] = i

		milestones = append(milestones, milestone)
	}

	slog.Debug("Milestones normalized", "rows", len(records), "milestones", len(milestones), "dropped", dropped)
	return milestones, nil
}

func (n *Normalizer) normalizeRecord(record sheet.Record) Milestone {
	value := func(key string) any {
		v, _ := record.Value(key)
		return v
	}

	milestoneType := record.String("type")

	return Milestone{
		ID:            record.String("id"),
		Type:          milestoneType,
		Date:          normalizeDate(value("date")),
		Title:         record.String("title"),
		Subtitle:      optionalString(value("subtitle")),
		Description:   optionalString(value("description")),
		Status:        record.String("status"),
		IsRisk:        decodeFlag(value("isRisk")),
		IsCatalyst:    decodeFlag(value("isCatalyst")),
		IsOutcome:     decodeFlag(value("isOutcome")),
		IsStatutory:   milestoneType == "statutory",
		CatalystOrder: parseOrder(value("catalystOrder")),
		Details:       n.buildDetails(record),
	}
}

// buildDetails collects every non-blank details_ column. It returns nil, not
// an empty value, when nothing was collected.
func (n *Normalizer) buildDetails(record sheet.Record) *Details {
	details := newDetails()

	for _, label := range record.Columns() {
		path, ok := parseDetailPath(label)
		if !ok {
			continue
		}

		v, _ := record.Value(label)
		if isBlank(v) {
			continue
		}

		if !details.put(path, detailField(v)) {
			slog.Debug("Ignoring detail field under non-group key", "column", label, "group", path.group)
		}
	}

	if details.Len() == 0 {
		return nil
	}
	return details
}
