package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tturner/smiteclick/internal/settings"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := settings.Defaults()
	s.CPS = 42
	s.CPSMode = settings.ModeFast
	s.TargetMode = settings.TargetSpecific
	s.SpecificPos = settings.Point{X: 640, Y: 360}
	s.StartHotkey = "Key.f9"

	for _, ext := range []string{".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", "fast"+ext)
			if err := SaveProfile(path, FromSettings("Fast Farm", s)); err != nil {
				t.Fatalf("SaveProfile: %v", err)
			}
			f, err := LoadProfile(path)
			if err != nil {
				t.Fatalf("LoadProfile: %v", err)
			}
			if f.Name != "Fast Farm" {
				t.Errorf("name = %q, want Fast Farm", f.Name)
			}

			st := settings.NewStore(settings.Defaults())
			if err := st.LoadProfile(f.Settings); err != nil {
				t.Fatalf("apply: %v", err)
			}
			got := st.Snapshot()
			if got != s {
				t.Errorf("settings = %+v, want %+v", got, s)
			}
		})
	}
}

func TestParseUnknownKeysAllowed(t *testing.T) {
	data := []byte("name: future\nsettings:\n  cps: 8\n  turbo_boost: true\n")
	f, err := Parse(data, "future.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u := f.Unknown(); len(u) != 1 || u[0] != "turbo_boost" {
		t.Errorf("Unknown() = %v, want [turbo_boost]", u)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no name", "settings:\n  cps: 5\n", "no name"},
		{"bad value", "name: x\nsettings:\n  cps: -1\n", "cps"},
		{"bad yaml", "name: [\n", "parse profile YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "p.yaml")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want to contain %q", err, tt.want)
			}
		})
	}
	_, err := Parse([]byte("settings:\n  cps: 5\n"), "p.yaml")
	if !errors.Is(err, ErrNoName) {
		t.Errorf("errors.Is(err, ErrNoName) = false for %v", err)
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"Fast Farm":        "fast_farm",
		"  Boss -- Phase 2": "boss_phase_2",
		"!!!":              "profile",
		"already_ok":       "already_ok",
	}
	for in, want := range tests {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListAndFindByName(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []struct{ file, name string }{
		{"b.yaml", "Bravo"},
		{"a.toml", "alpha"},
	} {
		if err := SaveProfile(filepath.Join(dir, p.file), &File{Name: p.name, Settings: settings.Record{"cps": 3}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := ListProfiles(dir)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "Bravo" {
		t.Fatalf("list = %+v", list)
	}

	f, err := LoadProfileByNameFromDir("b", dir)
	if err != nil || f.Name != "Bravo" {
		t.Errorf("by file name: %v %+v", err, f)
	}
	f, err = LoadProfileByNameFromDir("ALPHA", dir)
	if err != nil || f.Name != "alpha" {
		t.Errorf("by display name: %v %+v", err, f)
	}
	if _, err := LoadProfileByNameFromDir("charlie", dir); err == nil {
		t.Error("expected not found")
	}

	missing, err := ListProfiles(filepath.Join(dir, "nope"))
	if err != nil || missing != nil {
		t.Errorf("missing dir = %v, %v", missing, err)
	}
}
