package engine

import (
	"slices"
	"strings"
	"sync"

	"github.com/bellows-audio/bellows"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Bank is a named set of decoded samples, e.g. the reeds of one register of
// an accordion. Each sample has an onset offset: the number of seconds to skip
// before the audible content begins.
type Bank struct {
	ID   string
	Name string

	mu         sync.RWMutex
	samples    map[string]*bellows.Sample
	offsets    map[string]float64
	generation int
}

func newBank(id, name string) *Bank {
	if name == "" {
		name = displayName(id)
	}
	return &Bank{
		ID:      id,
		Name:    name,
		samples: map[string]*bellows.Sample{},
		offsets: map[string]float64{},
	}
}

func displayName(id string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(id)
	return cases.Title(language.English).String(words)
}

// Has reports if the sample is loaded in the bank.
func (b *Bank) Has(sampleID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.samples[sampleID]
	return ok
}

// Sample returns a loaded sample and its onset offset in seconds.
func (b *Bank) Sample(sampleID string) (s *bellows.Sample, offset float64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok = b.samples[sampleID]
	return s, b.offsets[sampleID], ok
}

// Len returns the number of loaded samples.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// SampleIDs returns the ids of the loaded samples in sorted order.
func (b *Bank) SampleIDs() []string {
	b.mu.RLock()
	ret := make([]string, 0, len(b.samples))
	for id := range b.samples {
		ret = append(ret, id)
	}
	b.mu.RUnlock()
	slices.Sort(ret)
	return ret
}

func (b *Bank) currentGeneration() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation
}

// put stores the sample unless it is already present. It returns
// ErrBankReleased if the bank was cleared after generation was read.
func (b *Bank) put(generation int, sampleID string, s *bellows.Sample, offset float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation != generation {
		return ErrBankReleased
	}
	if _, ok := b.samples[sampleID]; !ok {
		b.samples[sampleID] = s
		b.offsets[sampleID] = offset
	}
	return nil
}

func (b *Bank) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.samples)
	clear(b.offsets)
	b.generation++
}
