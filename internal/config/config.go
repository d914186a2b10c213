package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no --config
// flag is given.
const EnvConfigPath = "ARXIV_DAILY_CONFIG"

// DefaultPath is the conventional config filename used as a last resort.
const DefaultPath = "config.yaml"

type Config struct {
	DaysBack        int      `yaml:"days_back"`
	MaxPerTopic     int      `yaml:"max_results_per_topic"`
	FetchMultiplier int      `yaml:"fetch_multiplier"`
	HardCapResults  int      `yaml:"hard_cap_results"`
	FetchAttempts   int      `yaml:"fetch_attempts"`
	Categories      []string `yaml:"categories"`
	MatchIn         string   `yaml:"match_in"`
	DedupeMode      string   `yaml:"dedupe_mode"`
	SuppressSeen    *bool    `yaml:"suppress_seen"`
	SeenCap         int      `yaml:"seen_cap"`
	StatePath       string   `yaml:"state_path"`
	Schedule        string   `yaml:"schedule"`
	RunOnStart      bool     `yaml:"run_on_start"`
	LogLevel        string   `yaml:"log_level"`
	Weights         Weights  `yaml:"weights"`
	GlobalInclude   []string `yaml:"global_include"`
	GlobalExclude   []string `yaml:"global_exclude"`
	Publishers      []string `yaml:"publishers"`
	Output          Output   `yaml:"output"`
	Topics          []Topic  `yaml:"topics"`
}

// Weights are the relative contributions of each keyword set to an item's
// composite score. Boost terms never gate inclusion, they only rank.
type Weights struct {
	Global int `yaml:"global"`
	Topic  int `yaml:"topic"`
	Boost  int `yaml:"boost"`
}

type Output struct {
	DigestDir  string `yaml:"digest_dir"`
	TopicsDir  string `yaml:"topics_dir"`
	ReadmePath string `yaml:"readme_path"`
}

// Topic is one configured bucket. Query is optional; a topic without its own
// query draws from the shared category pool. Include doubles as the keyword
// list in plain keyword-bucket setups.
type Topic struct {
	Name    string   `yaml:"name"`
	Slug    string   `yaml:"slug"`
	Query   string   `yaml:"query"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	Boost   []string `yaml:"boost"`
}

// SuppressSeenEnabled reports whether previously seen items are suppressed
// across runs. Defaults to true when unset.
func (c *Config) SuppressSeenEnabled() bool {
	if c.SuppressSeen == nil {
		return true
	}
	return *c.SuppressSeen
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "${"), "}")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return m
	})
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a filesystem and URL safe slug from a topic name.
func Slugify(name string) string {
	s := strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "topic"
	}
	return s
}

func setDefaults(cfg *Config) {
	if cfg.DaysBack == 0 {
		cfg.DaysBack = 2
	}
	if cfg.MaxPerTopic == 0 {
		cfg.MaxPerTopic = 20
	}
	if cfg.FetchMultiplier == 0 {
		cfg.FetchMultiplier = 10
	}
	if cfg.HardCapResults == 0 {
		cfg.HardCapResults = 300
	}
	if cfg.FetchAttempts == 0 {
		cfg.FetchAttempts = 1
	}
	if cfg.MatchIn == "" {
		cfg.MatchIn = "title+abstract"
	}
	if cfg.DedupeMode == "" {
		cfg.DedupeMode = "topic"
	}
	if cfg.SeenCap == 0 {
		cfg.SeenCap = 50000
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "state_db.json"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = Weights{Global: 3, Topic: 4, Boost: 2}
	}
	if len(cfg.Publishers) == 0 {
		cfg.Publishers = []string{"files"}
	}
	if cfg.Output.DigestDir == "" {
		cfg.Output.DigestDir = "digests"
	}
	if cfg.Output.TopicsDir == "" {
		cfg.Output.TopicsDir = "topics"
	}
	if cfg.Output.ReadmePath == "" {
		cfg.Output.ReadmePath = "README.md"
	}
	for i := range cfg.Topics {
		if cfg.Topics[i].Slug == "" {
			cfg.Topics[i].Slug = Slugify(cfg.Topics[i].Name)
		}
	}
}

func validate(cfg *Config) error {
	if len(cfg.Topics) == 0 {
		return fmt.Errorf("config: at least one topic is required")
	}
	if cfg.DaysBack < 0 {
		return fmt.Errorf("config: days_back must not be negative")
	}
	if cfg.MaxPerTopic <= 0 {
		return fmt.Errorf("config: max_results_per_topic must be positive")
	}
	switch cfg.MatchIn {
	case "title", "abstract", "title+abstract":
	default:
		return fmt.Errorf("config: unsupported match_in %q (supported: title, abstract, title+abstract)", cfg.MatchIn)
	}
	switch cfg.DedupeMode {
	case "topic", "global":
	default:
		return fmt.Errorf("config: unsupported dedupe_mode %q (supported: topic, global)", cfg.DedupeMode)
	}
	for _, p := range cfg.Publishers {
		switch p {
		case "files", "stdout":
		default:
			return fmt.Errorf("config: unsupported publisher %q (supported: files, stdout)", p)
		}
	}

	slugs := make(map[string]string, len(cfg.Topics))
	for _, topic := range cfg.Topics {
		if topic.Name == "" {
			return fmt.Errorf("config: every topic needs a name")
		}
		if other, dup := slugs[topic.Slug]; dup {
			return fmt.Errorf("config: topics %q and %q share slug %q", other, topic.Name, topic.Slug)
		}
		slugs[topic.Slug] = topic.Name
		if topic.Query == "" && len(cfg.Categories) == 0 {
			return fmt.Errorf("config: topic %q has no query and no categories are configured", topic.Name)
		}
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
