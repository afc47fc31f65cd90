package options

import (
	"testing"

	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

func TestBuildUsesDefaultsWithNoLookup(t *testing.T) {
	opts := []plugin.OptName{
		{Name: "samplerate", DefValue: "256"},
		{Name: "channels", DefValue: "8"},
	}

	optv := Build(opts, nil)

	want := []string{"samplerate", "256", "channels", "8"}
	if len(optv) != len(want) {
		t.Fatalf("got %v, want %v", optv, want)
	}
	for i := range want {
		if optv[i] != want[i] {
			t.Errorf("optv[%d] = %q, want %q", i, optv[i], want[i])
		}
	}
}

func TestBuildPrefersLookupOverride(t *testing.T) {
	opts := []plugin.OptName{{Name: "samplerate", DefValue: "256"}}
	lookup := func(name string) (string, bool) {
		if name == "samplerate" {
			return "512", true
		}
		return "", false
	}

	optv := Build(opts, lookup)
	if Getopt("samplerate", "", optv) != "512" {
		t.Errorf("Build did not apply the lookup override")
	}
}

func TestGetoptFallsBackToDefault(t *testing.T) {
	optv := []string{"a", "1"}
	if got := Getopt("b", "fallback", optv); got != "fallback" {
		t.Errorf("Getopt(missing) = %q, want %q", got, "fallback")
	}
}

func TestGetoptFindsName(t *testing.T) {
	optv := []string{"a", "1", "b", "2"}
	if got := Getopt("b", "", optv); got != "2" {
		t.Errorf("Getopt(b) = %q, want %q", got, "2")
	}
}
