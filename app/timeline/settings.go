package timeline

import (
	"fmt"
	"time"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

const lastUpdatedKey = "lastUpdated"

// Settings is the key/value content of the config feed.
type Settings map[string]string

// NormalizeSettings builds settings from key/value rows. Rows without a key
// are skipped; a repeated key keeps its last value.
func NormalizeSettings(table *sheet.RawTable) (Settings, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: config table is missing", ErrNormalization)
	}

	settings := make(Settings)
	for _, record := range table.Records() {
		key := record.String("key")
		if key == "" {
			continue
		}
		settings[key] = record.String("value")
	}
	return settings, nil
}

// LastUpdated returns the configured lastUpdated date, or now's date when the
// key is missing or blank. Date(...) literals are converted like milestone dates.
func (s Settings) LastUpdated(now time.Time) string {
	if date := normalizeDate(s[lastUpdatedKey]); date != nil {
		return *date
	}
	return now.In(time.Local).Format(dateLayout)
}
