package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalConfig = `
categories: [cs.RO]
topics:
  - name: Manipulation
    include: [manipulation, grasping]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DaysBack != 2 {
		t.Errorf("DaysBack = %d, want 2", cfg.DaysBack)
	}
	if cfg.MaxPerTopic != 20 {
		t.Errorf("MaxPerTopic = %d, want 20", cfg.MaxPerTopic)
	}
	if cfg.FetchMultiplier != 10 {
		t.Errorf("FetchMultiplier = %d, want 10", cfg.FetchMultiplier)
	}
	if cfg.HardCapResults != 300 {
		t.Errorf("HardCapResults = %d, want 300", cfg.HardCapResults)
	}
	if cfg.MatchIn != "title+abstract" {
		t.Errorf("MatchIn = %q, want title+abstract", cfg.MatchIn)
	}
	if cfg.DedupeMode != "topic" {
		t.Errorf("DedupeMode = %q, want topic", cfg.DedupeMode)
	}
	if !cfg.SuppressSeenEnabled() {
		t.Error("SuppressSeenEnabled should default to true")
	}
	if cfg.SeenCap != 50000 {
		t.Errorf("SeenCap = %d, want 50000", cfg.SeenCap)
	}
	if cfg.Weights != (Weights{Global: 3, Topic: 4, Boost: 2}) {
		t.Errorf("Weights = %+v, want {3 4 2}", cfg.Weights)
	}
	if len(cfg.Publishers) != 1 || cfg.Publishers[0] != "files" {
		t.Errorf("Publishers = %v, want [files]", cfg.Publishers)
	}
	if cfg.Output.DigestDir != "digests" || cfg.Output.TopicsDir != "topics" || cfg.Output.ReadmePath != "README.md" {
		t.Errorf("unexpected output defaults: %+v", cfg.Output)
	}
}

func TestLoadDerivesSlugs(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
categories: [cs.RO]
topics:
  - name: "SLAM & Localization"
  - name: Grasping
    slug: grip
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Topics[0].Slug != "slam-localization" {
		t.Errorf("derived slug = %q, want slam-localization", cfg.Topics[0].Slug)
	}
	if cfg.Topics[1].Slug != "grip" {
		t.Errorf("explicit slug = %q, want grip", cfg.Topics[1].Slug)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Manipulation", "manipulation"},
		{"SLAM & Localization", "slam-localization"},
		{"  Multi  Word  ", "multi-word"},
		{"***", "topic"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no topics",
			content: `categories: [cs.RO]`,
			wantErr: "at least one topic",
		},
		{
			name: "duplicate slugs",
			content: `
categories: [cs.RO]
topics:
  - name: "Robot Arms"
  - name: "robot arms"
`,
			wantErr: "share slug",
		},
		{
			name: "bad dedupe mode",
			content: minimalConfig + `
dedupe_mode: cosmic
`,
			wantErr: "unsupported dedupe_mode",
		},
		{
			name: "bad match scope",
			content: minimalConfig + `
match_in: footnotes
`,
			wantErr: "unsupported match_in",
		},
		{
			name: "bad publisher",
			content: minimalConfig + `
publishers: [carrier-pigeon]
`,
			wantErr: "unsupported publisher",
		},
		{
			name: "topic without query or categories",
			content: `
topics:
  - name: Manipulation
`,
			wantErr: "no query and no categories",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_STATE_PATH", "/tmp/custom_state.json")
	cfg, err := Load(writeConfig(t, minimalConfig+`
state_path: ${TEST_STATE_PATH}
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StatePath != "/tmp/custom_state.json" {
		t.Errorf("StatePath = %q, want expanded env value", cfg.StatePath)
	}
}

func TestLoadLeavesUnknownEnvVarsIntact(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
state_path: ${DEFINITELY_NOT_SET_12345}
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StatePath != "${DEFINITELY_NOT_SET_12345}" {
		t.Errorf("StatePath = %q, want unexpanded placeholder", cfg.StatePath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSuppressSeenExplicitFalse(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
suppress_seen: false
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SuppressSeenEnabled() {
		t.Error("SuppressSeenEnabled should honor explicit false")
	}
}
