package review

import (
	"context"
	"errors"
	"sync"
)

// Outcome classifies what happened to a single fragment.
type Outcome int

const (
	OutcomeExtracted Outcome = iota
	// OutcomeEmpty is a degenerate but valid extraction.
	OutcomeEmpty
	OutcomeMarkerNotFound
	// OutcomeFailed covers configuration or parse errors.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeEmpty:
		return "empty"
	case OutcomeMarkerNotFound:
		return "marker-not-found"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the per-fragment outcome of a batch extraction.
type Result struct {
	Index   int
	Text    string
	Outcome Outcome
	Err     error
}

// OK reports whether the result carries usable text (possibly empty).
func (r Result) OK() bool {
	return r.Outcome == OutcomeExtracted || r.Outcome == OutcomeEmpty
}

// ExtractAll applies Extract with m to every fragment, preserving order.
func ExtractAll(fragments []string, m Markers) []Result {
	return ExtractAllWith(SplitExtractor{Markers: m}, fragments)
}

// ExtractAllWith runs e over fragments sequentially. The returned slice has
// exactly one Result per input, in input order.
func ExtractAllWith(e Extractor, fragments []string) []Result {
	out := make([]Result, len(fragments))
	for i, f := range fragments {
		out[i] = extractOne(e, i, f)
	}
	return out
}

// ExtractAllParallel is ExtractAllWith over a bounded worker pool. Results
// are still returned in input order. workers <= 0 means one worker.
func ExtractAllParallel(ctx context.Context, e Extractor, fragments []string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(fragments) {
		workers = len(fragments)
	}
	out := make([]Result, len(fragments))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = extractOne(e, i, fragments[i])
			}
		}()
	}

	var err error
feed:
	for i := range fragments {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return out, nil
}

func extractOne(e Extractor, i int, fragment string) Result {
	text, err := e.Extract(fragment)
	switch {
	case errors.Is(err, ErrMarkerNotFound):
		return Result{Index: i, Outcome: OutcomeMarkerNotFound, Err: err}
	case err != nil:
		return Result{Index: i, Outcome: OutcomeFailed, Err: err}
	case text == "":
		return Result{Index: i, Outcome: OutcomeEmpty}
	}
	return Result{Index: i, Text: text, Outcome: OutcomeExtracted}
}

// MissingPolicy decides what Collect does with fragments that failed.
type MissingPolicy int

const (
	// Omit drops failed fragments from the output.
	Omit MissingPolicy = iota
	// Placeholder emits Policy.Placeholder in their place.
	Placeholder
)

// Policy is the caller's choice of how to turn results into texts.
type Policy struct {
	OnMissing   MissingPolicy
	Placeholder string
	// DropEmpty filters degenerate empty extractions.
	DropEmpty bool
}

// Collect flattens results into texts according to p, in result order.
func Collect(results []Result, p Policy) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		switch {
		case !r.OK():
			if p.OnMissing == Placeholder {
				out = append(out, p.Placeholder)
			}
		case r.Outcome == OutcomeEmpty && p.DropEmpty:
		default:
			out = append(out, r.Text)
		}
	}
	return out
}

// Counts tallies results per outcome.
func Counts(results []Result) map[Outcome]int {
	m := make(map[Outcome]int, 4)
	for _, r := range results {
		m[r.Outcome]++
	}
	return m
}
