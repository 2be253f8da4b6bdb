package config

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Scraper struct {
		// Base listings URL; page N > 1 is fetched as URL?page=N.
		URL string `yaml:"url"`
		// Named daily trigger times, HH:MM.
		Schedule map[string]string `yaml:"schedule"`
		// Recurring fast trigger, minutes. 0 disables it.
		TestIntervalMinutes int `yaml:"test_interval_minutes"`
		// Maximum page count per run.
		MaxPages int `yaml:"max_pages"`
		// Page-load wait bound, seconds.
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"scraper"`

	Stores struct {
		SQLitePath string `yaml:"sqlite_path"`
		MongoURI   string `yaml:"mongo_uri"`
		MongoDB    string `yaml:"mongo_db"`
	} `yaml:"stores"`
}

// Default returns the built-in configuration, matching the hosted
// listings site this engine was written against.
func Default() Config {
	var cfg Config
	cfg.App.Port = 5000
	cfg.Scraper.URL = "https://www.actuarylist.com/"
	cfg.Scraper.Schedule = map[string]string{
		"midnight":      "00:00",
		"early_morning": "03:00",
		"morning":       "06:00",
	}
	cfg.Scraper.TestIntervalMinutes = 3
	cfg.Scraper.MaxPages = 20
	cfg.Scraper.TimeoutSeconds = 60
	cfg.Stores.MongoURI = "mongodb://localhost:27017"
	cfg.Stores.MongoDB = "job_listings"
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// ApplyEnv overlays recognized environment variables on top of the
// file-loaded config. Unset or malformed values leave the config as-is.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = n
		}
	}
	if v := os.Getenv("SCRAPER_URL"); v != "" {
		cfg.Scraper.URL = v
	}
	if v := os.Getenv("SCRAPER_SCHEDULE"); v != "" {
		if m := parseScheduleEnv(v); len(m) > 0 {
			cfg.Scraper.Schedule = m
		}
	}
	if v := os.Getenv("SCRAPER_TEST_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scraper.TestIntervalMinutes = n
		}
	}
	if v := os.Getenv("SCRAPER_MAX_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scraper.MaxPages = n
		}
	}
	if v := os.Getenv("SCRAPER_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scraper.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Stores.MongoURI = v
	}
	if v := os.Getenv("MONGO_DB"); v != "" {
		cfg.Stores.MongoDB = v
	}
	return cfg
}

// parseScheduleEnv parses "midnight=00:00,morning=06:00".
func parseScheduleEnv(s string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		name, tm, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		tm = strings.TrimSpace(tm)
		if name == "" || tm == "" {
			continue
		}
		out[name] = tm
	}
	return out
}

// ScheduleDescription renders the configured triggers for the status
// endpoint, in a stable order.
func (c Config) ScheduleDescription() []string {
	names := make([]string, 0, len(c.Scraper.Schedule))
	for name := range c.Scraper.Schedule {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		out = append(out, "daily at "+c.Scraper.Schedule[name]+" ("+name+")")
	}
	if c.Scraper.TestIntervalMinutes > 0 {
		out = append(out, "every "+strconv.Itoa(c.Scraper.TestIntervalMinutes)+" minutes")
	}
	return out
}
