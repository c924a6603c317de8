package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

type (
	// SampleSource names a sample and where to fetch it from.
	SampleSource struct {
		SampleID string
		Source   string
	}

	LoadReport struct {
		Loaded int
		Failed int
	}
)

var (
	// ErrFetchFailed is wrapped by load errors where the source could not be
	// fetched. The error also wraps the *fetch.StatusError, if the source
	// answered with a non-success status.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrDecodeFailed is wrapped by load errors where the fetched bytes could
	// not be decoded.
	ErrDecodeFailed = errors.New("decode failed")
	// ErrBankReleased is returned for a load whose bank was released while
	// the sample was being fetched or decoded. The sample is dropped.
	ErrBankReleased = errors.New("bank released during load")
)

// Load fetches and decodes a sample into the bank, creating the bank if
// needed. Loading a sample that is already in the bank does nothing; loads of
// the same sample running at the same time are done only once. Failures are
// logged and the sample stays absent, so triggering it plays nothing.
func (e *Engine) Load(ctx context.Context, bankID, sampleID, source string) {
	if err := e.load(ctx, bankID, sampleID, source); err != nil {
		e.logger.Printf("could not load sample %v into bank %v: %v", sampleID, bankID, err)
	}
}

// LoadBatch loads the samples into the bank concurrently. It always loads
// every sample and never fails; progress, if not nil, is called once per
// sample with the outcome of its load, which lets the caller count the loads.
// progress may be called from multiple goroutines, but never concurrently.
func (e *Engine) LoadBatch(ctx context.Context, bankID string, sources []SampleSource, progress func(sampleID string, err error)) LoadReport {
	var (
		report LoadReport
		mu     sync.Mutex
		g      errgroup.Group
	)
	g.SetLimit(e.loadConcurrency)
	for _, s := range sources {
		g.Go(func() error {
			err := e.load(ctx, bankID, s.SampleID, s.Source)
			if err != nil {
				e.logger.Printf("could not load sample %v into bank %v: %v", s.SampleID, bankID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
			} else {
				report.Loaded++
			}
			if progress != nil {
				progress(s.SampleID, err)
			}
			return nil
		})
	}
	g.Wait()
	return report
}

func (e *Engine) load(ctx context.Context, bankID, sampleID, source string) error {
	b := e.Bank(bankID, "")
	if b.Has(sampleID) {
		return nil
	}
	gen := b.currentGeneration()
	key := fmt.Sprintf("%s\x00%d\x00%s", bankID, gen, sampleID)
	_, err, _ := e.inflight.Do(key, func() (any, error) {
		data, err := e.fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrFetchFailed, source, err)
		}
		s, err := e.decoder.Decode(data, e.sampleRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrDecodeFailed, source, err)
		}
		return nil, b.put(gen, sampleID, s, DetectOnset(s))
	})
	return err
}
