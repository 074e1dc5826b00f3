package cfg

import (
	"cmp"
	"fmt"
	"net/url"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const gvizURLTemplate = "https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:json&sheet=%s"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Feed sources
	SpreadsheetID   string `long:"sheet-id" env:"SHEET_ID" description:"Google Sheets spreadsheet id holding the milestones and config tabs"`
	MilestonesSheet string `long:"milestones-sheet" env:"MILESTONES_SHEET" default:"milestones" description:"Name of the milestones tab"`
	ConfigSheet     string `long:"config-sheet" env:"CONFIG_SHEET" default:"config" description:"Name of the config tab"`
	MilestonesURL   string `long:"milestones-url" env:"MILESTONES_URL" description:"Full milestones feed URL (overrides --sheet-id)"`
	ConfigURL       string `long:"config-url" env:"CONFIG_URL" description:"Full config feed URL (overrides --sheet-id)"`

	// Application configuration
	Port         string  `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string  `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://timeline.example.com)"`
	FallbackFile string  `long:"fallback-file" env:"FALLBACK_FILE" description:"YAML file overriding the built-in fallback timeline (optional)"`
	HTTPTimeout  int     `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"Feed request timeout in seconds"`
	RateLimit    float64 `long:"rate-limit" env:"RATE_LIMIT" default:"2" description:"Timeline loads allowed per second (0 disables limiting)"`
	RateBurst    int     `long:"rate-burst" env:"RATE_BURST" default:"5" description:"Burst size for timeline loads"`
	Once         bool    `long:"once" description:"Load the timeline once, print it as JSON and exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Milestone Timeline/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses args (without the program name) and the environment.
// It returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		SpreadsheetID:   raw.SpreadsheetID,
		MilestonesSheet: raw.MilestonesSheet,
		ConfigSheet:     raw.ConfigSheet,
		MilestonesURL:   cmp.Or(raw.MilestonesURL, sheetURL(raw.SpreadsheetID, raw.MilestonesSheet)),
		ConfigURL:       cmp.Or(raw.ConfigURL, sheetURL(raw.SpreadsheetID, raw.ConfigSheet)),
		Port:            raw.Port,
		BaseUrl:         raw.BaseUrl,
		FallbackFile:    raw.FallbackFile,
		HTTPTimeout:     time.Duration(raw.HTTPTimeout) * time.Second,
		RateLimit:       raw.RateLimit,
		RateBurst:       raw.RateBurst,
		Once:            raw.Once,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func sheetURL(spreadsheetID, sheet string) string {
	if spreadsheetID == "" || sheet == "" {
		return ""
	}
	return fmt.Sprintf(gvizURLTemplate, url.PathEscape(spreadsheetID), url.QueryEscape(sheet))
}

func validate(cfg *Cfg) error {
	requiredFields := map[string]string{
		"milestones feed URL (--milestones-url or --sheet-id)": cfg.MilestonesURL,
		"config feed URL (--config-url or --sheet-id)":         cfg.ConfigURL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must be non-negative")
	}
	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return fmt.Errorf("rate limit and burst must be non-negative")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
