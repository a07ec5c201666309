package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/quoting/catalog"
	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/internal/logger"
	"github.com/liamcoop/quoting/internal/metrics"
	"github.com/liamcoop/quoting/questionnaire"
	"github.com/liamcoop/quoting/rating"
	"github.com/liamcoop/quoting/underwriting"
)

// ErrInvalidRequest wraps every validation failure returned by the service.
var ErrInvalidRequest = errors.New("invalid quote request")

const (
	DefaultValidity      = 30 * 24 * time.Hour
	DefaultRecordTimeout = 5 * time.Second
)

// Result is the outcome of one quote attempt: either priced quotes or a rejection.
type Result struct {
	InsuranceType insurance.InsuranceType `json:"insuranceType"`
	Quotes        []rating.Quote          `json:"quotes"`
	RequestID     string                  `json:"requestId,omitempty"`
	ValidUntil    *time.Time              `json:"validUntil,omitempty"`
	Rejection     *underwriting.Rejection `json:"rejection,omitempty"`
}

// Rejected reports whether the application was declined.
func (r *Result) Rejected() bool {
	return r.Rejection != nil
}

// Service turns quote requests into decisions and priced quotes.
type Service struct {
	questions *questionnaire.Registry
	decisions *underwriting.Engine
	catalog   catalog.Store
	rater     *rating.Engine

	recorder      Recorder
	metrics       *metrics.Metrics
	validity      time.Duration
	recordTimeout time.Duration
	now           func() time.Time
	newID         func() string

	wg sync.WaitGroup
}

type Option func(*Service)

// WithRecorder sets where generated quotes are recorded.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithValidity sets how long issued quotes stay valid.
func WithValidity(d time.Duration) Option {
	return func(s *Service) { s.validity = d }
}

// WithRecordTimeout bounds each background recording.
func WithRecordTimeout(d time.Duration) Option {
	return func(s *Service) { s.recordTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService wires the engines to a catalog.
func NewService(questions *questionnaire.Registry, decisions *underwriting.Engine, store catalog.Store, rater *rating.Engine, opts ...Option) *Service {
	s := &Service{
		questions:     questions,
		decisions:     decisions,
		catalog:       store,
		rater:         rater,
		validity:      DefaultValidity,
		recordTimeout: DefaultRecordTimeout,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) validate(req insurance.QuoteRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := s.questions.ValidateAnswers(req.InsuranceType, req.UnderwritingAnswers); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// Decide validates the answers of req and runs the decline rules only.
func (s *Service) Decide(req insurance.QuoteRequest) (*underwriting.Rejection, error) {
	if !req.InsuranceType.Valid() {
		return nil, fmt.Errorf("%w: unknown insurance type %q", ErrInvalidRequest, req.InsuranceType)
	}
	if err := s.questions.ValidateAnswers(req.InsuranceType, req.UnderwritingAnswers); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.decide(req), nil
}

func (s *Service) decide(req insurance.QuoteRequest) *underwriting.Rejection {
	rejection := s.decisions.Evaluate(req.InsuranceType, req.BusinessDetails, req.UnderwritingAnswers)
	if rejection != nil && s.metrics != nil {
		s.metrics.Declines.WithLabelValues(string(req.InsuranceType)).Inc()
	}
	return rejection
}

// Generate validates req, runs the decline rules and, when the applicant is
// not declined, prices every active product of the requested type.
// Catalog failures abort with an error. Recording happens in the background
// and never affects the result.
func (s *Service) Generate(ctx context.Context, req insurance.QuoteRequest) (*Result, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if rejection := s.decide(req); rejection != nil {
		return &Result{
			InsuranceType: req.InsuranceType,
			Quotes:        []rating.Quote{},
			Rejection:     rejection,
		}, nil
	}

	start := s.now()
	products, err := s.catalog.ListActiveProducts(ctx, req.InsuranceType)
	if err != nil {
		logger.ErrorCatalog("failed to load products", "insurance_type", req.InsuranceType, "error", err)
		return nil, fmt.Errorf("load products: %w", err)
	}
	factors, err := s.catalog.ListActiveFactors(ctx, req.InsuranceType)
	if err != nil {
		logger.ErrorCatalog("failed to load rating factors", "insurance_type", req.InsuranceType, "error", err)
		return nil, fmt.Errorf("load rating factors: %w", err)
	}

	quotes := s.rater.ComputeQuotes(req, products, factors)
	now := s.now()
	validUntil := now.Add(s.validity).UTC()

	if s.metrics != nil {
		label := string(req.InsuranceType)
		s.metrics.RatingDuration.WithLabelValues(label).Observe(now.Sub(start).Seconds())
		s.metrics.QuotesGenerated.WithLabelValues(label).Add(float64(len(quotes)))
	}

	result := &Result{
		InsuranceType: req.InsuranceType,
		Quotes:        quotes,
		RequestID:     s.newID(),
		ValidUntil:    &validUntil,
	}

	logger.Debug("quotes generated",
		"request_id", result.RequestID,
		"insurance_type", req.InsuranceType,
		"quotes", len(quotes),
	)

	s.record(ctx, Record{
		RequestID:  result.RequestID,
		Request:    req,
		Quotes:     quotes,
		ValidUntil: validUntil,
		CreatedAt:  now.UTC(),
	})
	return result, nil
}

func (s *Service) record(parent context.Context, rec Record) {
	if s.recorder == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.recordTimeout)
		defer cancel()

		err := s.recorder.Record(ctx, rec)
		if err == nil {
			return
		}
		for _, failed := range failedRecorders(err, s.recorder.Name()) {
			if s.metrics != nil {
				s.metrics.RecordFailures.WithLabelValues(failed).Inc()
			}
		}
		logger.ErrorRecord("failed to record quotes", "request_id", rec.RequestID, "error", err)
	}()
}

// Wait blocks until background recordings finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
