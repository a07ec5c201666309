package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
)

// Record is everything persisted about one priced request.
type Record struct {
	RequestID  string
	Request    insurance.QuoteRequest
	Quotes     []rating.Quote
	ValidUntil time.Time
	CreatedAt  time.Time
}

// Recorder stores generated quotes somewhere outside the request path.
type Recorder interface {
	Name() string
	Record(ctx context.Context, rec Record) error
}

// RecorderError names the recorder that failed.
type RecorderError struct {
	Recorder string
	Err      error
}

func (e *RecorderError) Error() string {
	return fmt.Sprintf("%s recorder: %v", e.Recorder, e.Err)
}

func (e *RecorderError) Unwrap() error {
	return e.Err
}

// Recorders runs every recorder concurrently. One failure does not stop the
// others; all failures are joined.
type Recorders []Recorder

func (rs Recorders) Name() string {
	return "all"
}

func (rs Recorders) Record(ctx context.Context, rec Record) error {
	errs := make([]error, len(rs))

	var wg sync.WaitGroup
	for i, r := range rs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Record(ctx, rec); err != nil {
				errs[i] = &RecorderError{Recorder: r.Name(), Err: err}
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// failedRecorders lists the recorder names found in err, falling back to
// name for errors that do not carry one.
func failedRecorders(err error, name string) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var names []string
		for _, e := range joined.Unwrap() {
			names = append(names, failedRecorders(e, name)...)
		}
		return names
	}

	var re *RecorderError
	if errors.As(err, &re) {
		return []string{re.Recorder}
	}
	return []string{name}
}
