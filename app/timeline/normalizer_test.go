package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

func table(columns []string, rows ...[]any) *sheet.RawTable {
	return &sheet.RawTable{Columns: columns, Rows: rows}
}

func TestNormalizerRunFullRow(t *testing.T) {
	columns := []string{"id", "type", "date", "title", "subtitle", "description", "status",
		"isRisk", "isCatalyst", "isOutcome", "catalystOrder", "details_summary", "details_risks_items", "notes"}

	milestones, err := NewNormalizer().Run(table(columns,
		[]any{"m1", "statutory", "Date(2026,2,9)", "COMMENT DEADLINE", "", "Docket 2026-01", "upcoming",
			"TRUE", true, "false", 2.0, "X", "a|b|c", "internal note"},
	))
	require.NoError(t, err)
	require.Len(t, milestones, 1)

	m := milestones[0]
	expected := Milestone{
		ID:            "m1",
		Type:          "statutory",
		Date:          ptr("2026-03-09"),
		Title:         "COMMENT DEADLINE",
		Description:   ptr("Docket 2026-01"),
		Status:        "upcoming",
		IsRisk:        true,
		IsCatalyst:    true,
		IsOutcome:     false,
		IsStatutory:   true,
		CatalystOrder: intPtr(2),
	}
	if diff := cmp.Diff(expected, m, cmpopts.IgnoreFields(Milestone{}, "Details")); diff != "" {
		t.Errorf("milestone mismatch (-want +got):\n%s", diff)
	}

	require.True(t, m.HasDetails())
	wantDetails := map[string]any{
		"summary": "X",
		"risks":   map[string]any{"items": []string{"a", "b", "c"}},
	}
	if diff := cmp.Diff(wantDetails, m.Details.Map()); diff != "" {
		t.Errorf("details mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizerRunDetailsAbsence(t *testing.T) {
	columns := []string{"id", "title", "details_summary", "details_risks_items"}

	milestones, err := NewNormalizer().Run(table(columns,
		[]any{"m1", "No panel", "", ""},
		[]any{"m2", "No columns at all"},
	))
	require.NoError(t, err)
	require.Len(t, milestones, 2)

	for _, m := range milestones {
		assert.False(t, m.HasDetails(), "milestone %s should have no details", m.ID)

		data, err := json.Marshal(m)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		_, present := decoded["details"]
		assert.False(t, present, "details key must be absent, got %s", data)
	}
}

func TestNormalizerRunDeepDetailKeys(t *testing.T) {
	columns := []string{"id", "details_a_b_c", "details_a_b_d", "details_x_y_z"}

	milestones, err := NewNormalizer().Run(table(columns,
		[]any{"m1", "one", "two", "three"},
	))
	require.NoError(t, err)
	require.Len(t, milestones, 1)

	data, err := json.Marshal(milestones[0].Details)
	require.NoError(t, err)
	// Segments past the second are ignored, so the later column wins.
	assert.Equal(t, `{"a":{"b":"two"},"x":{"y":"three"}}`, string(data))
}

func TestNormalizerRunDefaults(t *testing.T) {
	columns := []string{"id", "type", "title", "status"}

	milestones, err := NewNormalizer().Run(table(columns, []any{"start", "start", "START", "completed"}))
	require.NoError(t, err)
	require.Len(t, milestones, 1)

	m := milestones[0]
	assert.Nil(t, m.Date)
	assert.Nil(t, m.Subtitle)
	assert.Nil(t, m.Description)
	assert.Nil(t, m.CatalystOrder)
	assert.False(t, m.IsRisk)
	assert.False(t, m.IsStatutory)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"start","type":"start","date":null,"title":"START","subtitle":null,"description":null,
		"status":"completed","isRisk":false,"isCatalyst":false,"isOutcome":false,"isStatutory":false,"catalystOrder":null}`, string(data))
}

func TestNormalizerRunPreservesUnknownTags(t *testing.T) {
	milestones, err := NewNormalizer().Run(table([]string{"id", "type", "status"},
		[]any{"x", "hearing", "postponed"},
	))
	require.NoError(t, err)
	assert.Equal(t, "hearing", milestones[0].Type)
	assert.Equal(t, "postponed", milestones[0].Status)
}

func TestNormalizerRunDropsRowsWithoutID(t *testing.T) {
	milestones, err := NewNormalizer().Run(table([]string{"id", "title"},
		[]any{"a", "first"},
		[]any{"", "no id"},
		[]any{nil, "nil id"},
		[]any{0.0, "zero id"},
		[]any{false, "false id"},
		[]any{"  ", "whitespace id"},
		[]any{"b", "second"},
		[]any{"a", "duplicate"},
		[]any{7.0, "numeric id"},
	))
	require.NoError(t, err)

	ids := make([]string, 0, len(milestones))
	for _, m := range milestones {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "  ", "b", "7"}, ids)
	assert.Equal(t, "first", milestones[0].Title)
}

func TestNormalizerRunDropProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("output length is row count minus rows without id", prop.ForAll(
		func(hasID []bool) bool {
			rows := make([][]any, len(hasID))
			dropped := 0
			for i, ok := range hasID {
				id := ""
				if ok {
					id = fmt.Sprintf("m%d", i)
				} else {
					dropped++
				}
				rows[i] = []any{id, fmt.Sprintf("title %d", i)}
			}

			milestones, err := NewNormalizer().Run(&sheet.RawTable{Columns: []string{"id", "title"}, Rows: rows})
			if err != nil || len(milestones) != len(rows)-dropped {
				return false
			}
			for _, m := range milestones {
				if m.ID == "" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestNormalizerRunMissingTable(t *testing.T) {
	_, err := NewNormalizer().Run(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNormalization))
}
