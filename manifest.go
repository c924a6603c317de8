package bellows

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"gopkg.in/yaml.v3"
)

type (
	// Manifest describes the sound sets of an instrument: which banks exist,
	// which samples they contain, where the sample files can be fetched from
	// and how MIDI keys map to samples.
	Manifest struct {
		// AssetRoot is the root the source locations are resolved against,
		// e.g. "https://example.com/audio" or a local directory.
		AssetRoot string `yaml:"assetRoot,omitempty" json:"assetRoot,omitempty"`
		// Source is a text/template (with sprig functions) rendering the
		// location of one sample. Defaults to DefaultSourceTemplate.
		Source string     `yaml:"source,omitempty" json:"source,omitempty"`
		Banks  []BankSpec `yaml:"banks" json:"banks"`
	}

	BankSpec struct {
		ID      string           `yaml:"id" json:"id"`
		Name    string           `yaml:"name,omitempty" json:"name,omitempty"`
		Path    string           `yaml:"path,omitempty" json:"path,omitempty"`
		Samples []string         `yaml:"samples,flow" json:"samples"`
		Keys    map[byte]KeySpec `yaml:"keys,omitempty" json:"keys,omitempty"`
	}

	// KeySpec is what happens when a MIDI key is pressed: which sample of the
	// bank is triggered, shifted by how many semitones, at what volume.
	KeySpec struct {
		Sample string  `yaml:"sample" json:"sample"`
		Shift  float64 `yaml:"shift,omitempty" json:"shift,omitempty"`
		Volume float64 `yaml:"volume,omitempty" json:"volume,omitempty"`
		Loop   bool    `yaml:"loop,omitempty" json:"loop,omitempty"`
	}

	// SourceParams are the values available in the source template.
	SourceParams struct {
		Bank   string
		Path   string
		Sample string
	}
)

const DefaultSourceTemplate = `{{ .Path }}/{{ .Sample }}`

// ParseManifest parses a manifest from YAML or JSON.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if errJSON := json.Unmarshal(data, &m); errJSON != nil {
		m = Manifest{}
		if errYaml := yaml.Unmarshal(data, &m); errYaml != nil {
			return nil, fmt.Errorf("the manifest could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that bank ids are present and unique, that samples are not
// listed twice and that every key refers to a sample of its bank.
func (m *Manifest) Validate() error {
	banks := map[string]bool{}
	for i, b := range m.Banks {
		if b.ID == "" {
			return fmt.Errorf("bank #%d has no id", i)
		}
		if banks[b.ID] {
			return fmt.Errorf("bank %q is defined twice", b.ID)
		}
		banks[b.ID] = true
		samples := map[string]bool{}
		for _, s := range b.Samples {
			if s == "" {
				return fmt.Errorf("bank %q has an empty sample id", b.ID)
			}
			if samples[s] {
				return fmt.Errorf("bank %q lists sample %q twice", b.ID, s)
			}
			samples[s] = true
		}
		for note, k := range b.Keys {
			if !samples[k.Sample] {
				return fmt.Errorf("bank %q: key %d refers to unknown sample %q", b.ID, note, k.Sample)
			}
		}
	}
	return nil
}

// Bank returns the bank with the given id.
func (m *Manifest) Bank(id string) (BankSpec, bool) {
	for _, b := range m.Banks {
		if b.ID == id {
			return b, true
		}
	}
	return BankSpec{}, false
}

// SourceFor renders the location of a sample of a bank. The path is relative
// to the asset root.
func (m *Manifest) SourceFor(bank BankSpec, sample string) (string, error) {
	tmpl, err := m.sourceTemplate()
	if err != nil {
		return "", err
	}
	path := bank.Path
	if path == "" {
		path = bank.ID
	}
	var b bytes.Buffer
	if err := tmpl.Execute(&b, SourceParams{Bank: bank.ID, Path: path, Sample: sample}); err != nil {
		return "", fmt.Errorf("could not render source for %v/%v: %w", bank.ID, sample, err)
	}
	ret := strings.TrimSpace(b.String())
	if ret == "" {
		return "", errors.New("source template rendered an empty location")
	}
	return ret, nil
}

// Sources returns the locations of all samples of a bank, in the order they
// are listed.
func (m *Manifest) Sources(bank BankSpec) ([]string, error) {
	ret := make([]string, 0, len(bank.Samples))
	for _, s := range bank.Samples {
		src, err := m.SourceFor(bank, s)
		if err != nil {
			return nil, err
		}
		ret = append(ret, src)
	}
	return ret, nil
}

func (m *Manifest) sourceTemplate() (*template.Template, error) {
	text := m.Source
	if text == "" {
		text = DefaultSourceTemplate
	}
	tmpl, err := template.New("source").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("could not parse source template: %w", err)
	}
	return tmpl, nil
}
