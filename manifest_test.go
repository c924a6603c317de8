package bellows_test

import (
	"strings"
	"testing"

	"github.com/bellows-audio/bellows"
)

const accordion = `
assetRoot: https://example.com/audio
source: '{{ .Path }}/{{ .Sample | lower }}.mp3'
banks:
  - id: reeds-lmm
    name: Reeds (LMM)
    path: accordion/lmm
    samples: [A4, C5]
    keys:
      69: {sample: A4}
      70: {sample: A4, shift: 1, volume: 0.8}
      72: {sample: C5, loop: true}
  - id: bass
    samples: [C2]
`

func TestParseManifestYAML(t *testing.T) {
	m, err := bellows.ParseManifest([]byte(accordion))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	if m.AssetRoot != "https://example.com/audio" {
		t.Errorf("AssetRoot = %q", m.AssetRoot)
	}
	if len(m.Banks) != 2 {
		t.Fatalf("got %d banks, want 2", len(m.Banks))
	}
	b, ok := m.Bank("reeds-lmm")
	if !ok {
		t.Fatalf("bank reeds-lmm not found")
	}
	if b.Name != "Reeds (LMM)" || len(b.Samples) != 2 {
		t.Errorf("bank = %+v", b)
	}
	if k := b.Keys[70]; k.Sample != "A4" || k.Shift != 1 || k.Volume != 0.8 || k.Loop {
		t.Errorf("key 70 = %+v", k)
	}
	if !b.Keys[72].Loop {
		t.Errorf("key 72 does not loop")
	}
	if _, ok := m.Bank("nonexistent"); ok {
		t.Errorf("found a bank that does not exist")
	}
}

func TestParseManifestJSON(t *testing.T) {
	m, err := bellows.ParseManifest([]byte(`{"banks":[{"id":"drums","samples":["kick.mp3"],"keys":{"36":{"sample":"kick.mp3"}}}]}`))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	if got := m.Banks[0].Keys[36].Sample; got != "kick.mp3" {
		t.Errorf("key 36 = %q, want kick.mp3", got)
	}
}

func TestManifestSources(t *testing.T) {
	m, err := bellows.ParseManifest([]byte(accordion))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	reeds, _ := m.Bank("reeds-lmm")
	got, err := m.Sources(reeds)
	if err != nil {
		t.Fatalf("Sources failed: %v", err)
	}
	if strings.Join(got, " ") != "accordion/lmm/a4.mp3 accordion/lmm/c5.mp3" {
		t.Errorf("Sources() = %v", got)
	}
	// without a path, the id of the bank is used
	m.Source = ""
	bass, _ := m.Bank("bass")
	src, err := m.SourceFor(bass, "C2")
	if err != nil {
		t.Fatalf("SourceFor failed: %v", err)
	}
	if src != "bass/C2" {
		t.Errorf("SourceFor() = %q, want bass/C2", src)
	}
}

func TestManifestSourceTemplateErrors(t *testing.T) {
	for _, source := range []string{"{{ .Sample", "{{ .Missing }}", "   "} {
		m := &bellows.Manifest{Source: source, Banks: []bellows.BankSpec{{ID: "b", Samples: []string{"s"}}}}
		if _, err := m.SourceFor(m.Banks[0], "s"); err == nil {
			t.Errorf("source %q: expected an error", source)
		}
	}
}

func TestManifestValidate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		manifest string
		err      string
	}{
		{"no id", "banks: [{samples: [a]}]", "no id"},
		{"duplicate bank", "banks: [{id: a}, {id: a}]", "defined twice"},
		{"duplicate sample", "banks: [{id: a, samples: [x, x]}]", "twice"},
		{"empty sample", "banks: [{id: a, samples: ['']}]", "empty sample"},
		{"unknown key target", "banks: [{id: a, samples: [x], keys: {60: {sample: y}}}]", "unknown sample"},
		{"garbage", "banks: {", "could not be parsed"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bellows.ParseManifest([]byte(tc.manifest))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.err) {
				t.Errorf("error %q does not contain %q", err, tc.err)
			}
		})
	}
}
