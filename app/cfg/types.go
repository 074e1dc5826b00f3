package cfg

import "time"

type Cfg struct {
	// Feed sources
	SpreadsheetID   string
	MilestonesSheet string
	ConfigSheet     string
	MilestonesURL   string
	ConfigURL       string

	// Application configuration
	Port         string
	BaseUrl      string
	FallbackFile string
	HTTPTimeout  time.Duration
	RateLimit    float64
	RateBurst    int
	Once         bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
