package emitter

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	content := `version: "1"
seed: 42
phases:
  - name: browse
    collection: PAGEVIEW
    count: 10
    interval: 50ms
  - name: signup
    collection: ENROLLMENT
    count: 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if sc.Seed != 42 {
		t.Errorf("seed = %d, want 42", sc.Seed)
	}
	if len(sc.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(sc.Phases))
	}
	if sc.Phases[0].Interval != 50*time.Millisecond {
		t.Errorf("interval = %v, want 50ms", sc.Phases[0].Interval)
	}
	if sc.Phases[1].Collection != "ENROLLMENT" {
		t.Errorf("collection = %q, want ENROLLMENT", sc.Phases[1].Collection)
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScenarioValidate(t *testing.T) {
	cases := []struct {
		name    string
		sc      Scenario
		wantErr bool
	}{
		{"valid", Scenario{Phases: []Phase{{Name: "a", Collection: "PING", Count: 1}}}, false},
		{"no phases", Scenario{}, true},
		{"missing collection", Scenario{Phases: []Phase{{Name: "a", Count: 1}}}, true},
		{"zero count", Scenario{Phases: []Phase{{Name: "a", Collection: "PING"}}}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sc.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDefaultScenarioIsValid(t *testing.T) {
	if err := DefaultScenario().Validate(); err != nil {
		t.Errorf("default scenario invalid: %v", err)
	}
}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(7)
	b := NewGenerator(7)

	pa := a.Payload("PAGEVIEW")
	pb := b.Payload("PAGEVIEW")
	if pa["path"] != pb["path"] || pa["title"] != pb["title"] {
		t.Errorf("same seed produced different payloads: %v vs %v", pa, pb)
	}
}

func TestGeneratorPayloadShapes(t *testing.T) {
	g := NewGenerator(1)

	pv := g.Payload("PAGEVIEW")
	for _, key := range []string{"path", "title", "referrer"} {
		if _, ok := pv[key]; !ok {
			t.Errorf("PAGEVIEW payload missing %q", key)
		}
	}

	ping := g.Payload("PING")
	if _, ok := ping["uptime_ms"]; !ok {
		t.Error("PING payload missing uptime_ms")
	}

	enr := g.Payload("ENROLLMENT")
	if _, ok := enr["account"]; !ok {
		t.Error("ENROLLMENT payload missing account")
	}

	custom := g.Payload("CUSTOM_THING")
	if _, ok := custom["value"]; !ok {
		t.Error("fallback payload missing value")
	}
}

func TestGeneratorSnapshot(t *testing.T) {
	snap := NewGenerator(1).Snapshot()
	for _, key := range []string{"user_agent", "locale", "timezone", "viewport"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("snapshot missing %q", key)
		}
	}
	vp, ok := snap["viewport"].(map[string]interface{})
	if !ok {
		t.Fatal("viewport is not a map")
	}
	if _, ok := vp["width"]; !ok {
		t.Error("viewport missing width")
	}
}
