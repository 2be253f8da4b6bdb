package config

import (
	"fmt"
	"strconv"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Validate checks a loaded config before the scheduler is built from it.
func Validate(cfg Config) Validation {
	var res Validation

	if strings.TrimSpace(cfg.Scraper.URL) == "" {
		res.addErr("scraper.url must not be empty")
	}
	for name, tm := range cfg.Scraper.Schedule {
		if _, _, err := ParseClock(tm); err != nil {
			res.addErr("scraper.schedule[%s]: %v", name, err)
		}
	}
	if cfg.Scraper.TestIntervalMinutes < 0 {
		res.addErr("scraper.test_interval_minutes must be >= 0")
	} else if cfg.Scraper.TestIntervalMinutes > 0 && cfg.Scraper.TestIntervalMinutes < 2 {
		res.addWarn("scraper.test_interval_minutes is very low (%d); runs may overlap their trigger constantly.", cfg.Scraper.TestIntervalMinutes)
	}
	if cfg.Scraper.MaxPages <= 0 {
		res.addErr("scraper.max_pages must be > 0")
	}
	if cfg.Scraper.TimeoutSeconds <= 0 {
		res.addErr("scraper.timeout_seconds must be > 0")
	}
	if strings.TrimSpace(cfg.Stores.MongoURI) == "" {
		res.addWarn("stores.mongo_uri is empty; manual listings will be unavailable.")
	}

	return res
}

// ParseClock parses an "HH:MM" trigger time.
func ParseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("not an HH:MM time: %q", s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}
