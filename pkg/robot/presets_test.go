package robot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadPresets_MissingFileUsesBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")

	p, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}

	if diff := cmp.Diff([]string{"Home", "Ready", "Rest"}, p.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	home, ok := p.Get("Home")
	if !ok {
		t.Fatal("Home preset missing")
	}
	if diff := cmp.Diff(Vector{512, 512, 512, 956, 800, 430}, home); diff != "" {
		t.Errorf("Home mismatch (-want +got):\n%s", diff)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("built-ins must not be written before a save, stat err = %v", err)
	}
}

func TestBuiltinPresetsInRange(t *testing.T) {
	for _, b := range builtinPresets {
		if err := ValidateVector(b.Vector); err != nil {
			t.Errorf("preset %s: %v", b.Name, err)
		}
	}
}

func TestPresets_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	p, err := LoadPresets(path)
	if err != nil {
		t.Fatal(err)
	}

	v := Vector{100, 600, 300, 500, 900, 700}
	if err := p.Save("X", v); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := fresh.Get("X")
	if !ok {
		t.Fatal("X missing after reload")
	}
	if diff := cmp.Diff(v, got); diff != "" {
		t.Errorf("X mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Home", "Ready", "Rest", "X"}, fresh.Names()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestPresets_SaveOverwritesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	p := DefaultPresets(path)

	v := Vector{0, 512, 30, 15, 0, 430}
	if err := p.Save("Home", v); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
	if got, _ := p.Get("Home"); got != v {
		t.Errorf("Home = %v, want %v", got, v)
	}
	if p.Names()[0] != "Home" {
		t.Errorf("Home moved to %v", p.Names())
	}
}

func TestPresets_SaveRejects(t *testing.T) {
	p := DefaultPresets(filepath.Join(t.TempDir(), "presets.json"))

	if err := p.Save("", Defaults()); err == nil {
		t.Error("empty name should be rejected")
	}
	if err := p.Save("bad", Vector{0, 0, 0, 0, 0, 0}); err == nil {
		t.Error("out-of-range vector should be rejected")
	}
	if _, ok := p.Get("bad"); ok {
		t.Error("rejected preset was stored")
	}
}

func TestPresets_ApplyUnknown(t *testing.T) {
	p := DefaultPresets(filepath.Join(t.TempDir(), "presets.json"))
	if _, ok := p.Apply("nope"); ok {
		t.Error("Apply(unknown) reported success")
	}
}

func TestPresets_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	p := DefaultPresets(path)

	if err := p.Delete("Ready"); err != nil {
		t.Fatal(err)
	}
	if err := p.Delete("Ready"); err == nil {
		t.Error("second delete should fail")
	}

	fresh, err := LoadPresets(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Home", "Rest"}, fresh.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPresets_KeepsFileOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	doc := `{"zeta": [1,512,30,15,0,430], "alpha": [2,512,30,15,0,430], "mid": [3,512,30,15,0,430]}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPresets(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, p.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPresets_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not json", `nope`, "parse preset file"},
		{"array", `[1,2,3]`, "expected object"},
		{"short vector", `{"a": [1,2,3]}`, "expected 6 positions"},
		{"bad element", `{"a": ["x",2,3,4,5,6]}`, `preset "a"`},
		{"trailing data", `{"a": [512,512,512,956,800,430]} x`, "unexpected data after presets object"},
		{"second object", `{"a": [512,512,512,956,800,430]}{}`, "unexpected data after presets object"},
		{"duplicate name", `{"a": [512,512,512,956,800,430], "a": [512,700,600,700,512,660]}`, `duplicate preset "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "presets.json")
			if err := os.WriteFile(path, []byte(tt.doc), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadPresets(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadPresets_TrailingWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	if err := os.WriteFile(path, []byte("{\"a\": [512,512,512,956,800,430]}\n\n"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, p.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestPresets_FailedWriteKeepsMemory(t *testing.T) {
	p := DefaultPresets(filepath.Join(t.TempDir(), "missing", "presets.json"))
	before := p.All()

	if err := p.Save("X", Defaults()); err == nil {
		t.Fatal("Save into a missing directory succeeded")
	}
	if _, ok := p.Get("X"); ok {
		t.Error("preset X kept after failed save")
	}

	if err := p.Save("Home", Vector{512, 700, 600, 700, 512, 660}); err == nil {
		t.Fatal("overwrite into a missing directory succeeded")
	}

	if err := p.Delete("Rest"); err == nil {
		t.Fatal("Delete into a missing directory succeeded")
	}
	if diff := cmp.Diff(before, p.All()); diff != "" {
		t.Errorf("presets changed after failed writes (-want +got):\n%s", diff)
	}
}

func TestPresets_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := DefaultPresets(filepath.Join(dir, "presets.json"))
	if err := p.Save("A", Defaults()); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "presets.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir contents = %v, want only presets.json", names)
	}
}

func TestPresets_All(t *testing.T) {
	p := DefaultPresets(filepath.Join(t.TempDir(), "presets.json"))
	want := []Preset{
		{"Home", Vector{512, 512, 512, 956, 800, 430}},
		{"Ready", Vector{512, 700, 600, 700, 512, 660}},
		{"Rest", Vector{512, 512, 200, 980, 512, 430}},
	}
	if diff := cmp.Diff(want, p.All()); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}
