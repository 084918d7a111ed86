package keys

import (
	"errors"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"Key.f6", "Key.f6", nil},
		{"f6", "Key.f6", nil},
		{"F6", "Key.f6", nil},
		{"<F7>", "Key.f7", nil},
		{"Key.page_up", "Key.page_up", nil},
		{"PageUp", "Key.page_up", nil},
		{"page-down", "Key.page_down", nil},
		{"Escape", "Key.esc", nil},
		{"Return", "Key.enter", nil},
		{"a", "a", nil},
		{"A", "a", nil},
		{"1", "1", nil},
		{"@", "@", nil},
		{" ", "Key.space", nil},
		{"", "", ErrEmptyKey},
		{"hyperdrive", "", ErrUnknownKey},
		{"f25", "", ErrUnknownKey},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Canonical(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Canonical(%q) err = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Canonical(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalIsIdempotent(t *testing.T) {
	for _, in := range []string{"f1", "Key.esc", "x", "Key.caps_lock", "PgDn"} {
		once, err := Canonical(in)
		if err != nil {
			t.Fatalf("Canonical(%q): %v", in, err)
		}
		twice, err := Canonical(once)
		if err != nil {
			t.Fatalf("Canonical(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("Canonical not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestPrintable(t *testing.T) {
	if got, _ := Printable('Q'); got != "q" {
		t.Errorf("Printable('Q') = %q, want q", got)
	}
	if got, _ := Printable('\t'); got != "Key.tab" {
		t.Errorf("Printable(tab) = %q", got)
	}
	if _, err := Printable(0x07); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Printable(bell) err = %v, want ErrUnknownKey", err)
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("Key.f6"); got != "f6" {
		t.Errorf("Display = %q, want f6", got)
	}
	if got := Display("z"); got != "z" {
		t.Errorf("Display = %q, want z", got)
	}
}

func TestNamed(t *testing.T) {
	if got := Named("f12"); got != "Key.f12" {
		t.Errorf("Named(f12) = %q", got)
	}
	if got := Named("nope"); got != "" {
		t.Errorf("Named(nope) = %q, want empty", got)
	}
	if len(Names()) < 30 {
		t.Errorf("Names() = %d entries, want the full named set", len(Names()))
	}
}
