package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/quoting/catalog"
	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/internal/metrics"
	"github.com/liamcoop/quoting/questionnaire"
	"github.com/liamcoop/quoting/rating"
	"github.com/liamcoop/quoting/underwriting"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fakeRecorder struct {
	name string
	err  error

	mu      sync.Mutex
	records []Record
	ctxErr  error
}

func (r *fakeRecorder) Name() string { return r.name }

func (r *fakeRecorder) Record(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	r.ctxErr = ctx.Err()
	return r.err
}

func (r *fakeRecorder) recorded() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

type failingStore struct {
	catalog.Store
}

func (failingStore) ListActiveProducts(context.Context, insurance.InsuranceType) ([]rating.Product, error) {
	return nil, errors.New("connection refused")
}

func seededStore(t *testing.T) *catalog.InMemoryStore {
	t.Helper()
	ctx := context.Background()
	store := catalog.NewInMemoryStore()

	for _, p := range []rating.Product{
		{ID: "cy-low", InsurerName: "Low", InsuranceType: insurance.CyberLiability, BasePremium: decimal.NewFromInt(900), Rating: 4.2, IsActive: true},
		{ID: "cy-high", InsurerName: "High", InsuranceType: insurance.CyberLiability, BasePremium: decimal.NewFromInt(1000), Rating: 4.8, IsActive: true},
		{ID: "cy-mid", InsurerName: "Mid", InsuranceType: insurance.CyberLiability, BasePremium: decimal.NewFromInt(950), Rating: 4.5, IsActive: true},
	} {
		require.NoError(t, store.AddProduct(ctx, &p))
	}

	require.NoError(t, store.AddFactor(ctx, &rating.RatingFactor{
		InsuranceType:     insurance.CyberLiability,
		FactorName:        "Large Record Volume",
		FactorType:        rating.Multiplier,
		FactorValue:       decimal.RequireFromString("1.5"),
		ConditionField:    questionnaire.FieldRecordsHeld,
		ConditionOperator: rating.OpGreaterThan,
		ConditionValue:    rating.NewConditionValue(100000),
		IsActive:          true,
	}))
	return store
}

func newTestService(t *testing.T, store catalog.Store, opts ...Option) *Service {
	t.Helper()
	decisions, err := underwriting.NewEngine(underwriting.DefaultRules())
	require.NoError(t, err)

	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "req-1" }),
	}, opts...)
	return NewService(questionnaire.DefaultRegistry(), decisions, store, rating.NewEngine(), opts...)
}

func cyberRequest(answers insurance.Answers) insurance.QuoteRequest {
	return insurance.QuoteRequest{
		InsuranceType:       insurance.CyberLiability,
		ContactDetails:      insurance.ContactDetails{Name: "Thandi", Email: "thandi@example.co.za"},
		BusinessDetails:     insurance.BusinessDetails{Name: "Acme Data", EmployeeCount: 12},
		UnderwritingAnswers: answers,
	}
}

func TestGenerate_PricesAndRecords(t *testing.T) {
	rec := &fakeRecorder{name: "fake"}
	svc := newTestService(t, seededStore(t), WithRecorder(rec), WithValidity(48*time.Hour))

	result, err := svc.Generate(context.Background(), cyberRequest(insurance.Answers{
		"has-firewall":    true,
		"regular-backups": true,
		"mfa-enabled":     true,
		"records-held":    "250000",
	}))
	require.NoError(t, err)
	require.False(t, result.Rejected())

	assert.Equal(t, "req-1", result.RequestID)
	require.NotNil(t, result.ValidUntil)
	assert.Equal(t, fixedNow.Add(48*time.Hour), *result.ValidUntil)

	require.Len(t, result.Quotes, 3)
	assert.Equal(t, "cy-high", result.Quotes[0].ProductID)
	assert.Equal(t, "R1,500", result.Quotes[0].MonthlyPremium)
	assert.Equal(t, "R18,000", result.Quotes[0].AnnualPremium)
	assert.Equal(t, "cy-mid", result.Quotes[1].ProductID)
	assert.Equal(t, "cy-low", result.Quotes[2].ProductID)

	require.NoError(t, svc.Wait(context.Background()))
	records := rec.recorded()
	require.Len(t, records, 1)
	assert.Equal(t, "req-1", records[0].RequestID)
	assert.Len(t, records[0].Quotes, 3)
	assert.Equal(t, fixedNow, records[0].CreatedAt)
}

func TestGenerate_Rejection(t *testing.T) {
	rec := &fakeRecorder{name: "fake"}
	m := metrics.New()
	svc := newTestService(t, seededStore(t), WithRecorder(rec), WithMetrics(m))

	result, err := svc.Generate(context.Background(), cyberRequest(insurance.Answers{
		"has-firewall": false,
	}))
	require.NoError(t, err)
	require.True(t, result.Rejected())

	assert.Equal(t, "false", result.Rejection.Answer)
	assert.NotEmpty(t, result.Rejection.Question)
	assert.Empty(t, result.Quotes)
	assert.NotNil(t, result.Quotes)
	assert.Empty(t, result.RequestID)
	assert.Nil(t, result.ValidUntil)

	require.NoError(t, svc.Wait(context.Background()))
	assert.Empty(t, rec.recorded())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Declines.WithLabelValues("cyber-liability")))
}

func TestGenerate_InvalidRequest(t *testing.T) {
	svc := newTestService(t, seededStore(t))

	req := cyberRequest(insurance.Answers{"has-firewall": true})
	req.ContactDetails.Email = "not-an-email"
	_, err := svc.Generate(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
	var verr *insurance.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Generate(context.Background(), cyberRequest(insurance.Answers{"has-firewall": "yes"}))
	require.ErrorIs(t, err, ErrInvalidRequest)
	var aerr *questionnaire.AnswersError
	require.ErrorAs(t, err, &aerr)
	assert.Contains(t, aerr.Fields, "has-firewall")

	req = cyberRequest(nil)
	req.InsuranceType = "marine"
	_, err = svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGenerate_CatalogFailureAborts(t *testing.T) {
	rec := &fakeRecorder{name: "fake"}
	svc := newTestService(t, failingStore{Store: catalog.NewInMemoryStore()}, WithRecorder(rec))

	result, err := svc.Generate(context.Background(), cyberRequest(insurance.Answers{"has-firewall": true}))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "load products")

	require.NoError(t, svc.Wait(context.Background()))
	assert.Empty(t, rec.recorded())
}

func TestGenerate_RecorderFailureIsNotSurfaced(t *testing.T) {
	failing := &fakeRecorder{name: "broken", err: errors.New("disk full")}
	healthy := &fakeRecorder{name: "healthy"}
	m := metrics.New()
	svc := newTestService(t, seededStore(t), WithRecorder(Recorders{failing, healthy}), WithMetrics(m))

	result, err := svc.Generate(context.Background(), cyberRequest(insurance.Answers{"has-firewall": true}))
	require.NoError(t, err)
	assert.Len(t, result.Quotes, 3)

	require.NoError(t, svc.Wait(context.Background()))
	assert.Len(t, healthy.recorded(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordFailures.WithLabelValues("broken")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RecordFailures.WithLabelValues("healthy")))
}

func TestGenerate_RecordingSurvivesRequestCancellation(t *testing.T) {
	rec := &fakeRecorder{name: "fake"}
	svc := newTestService(t, seededStore(t), WithRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Generate(ctx, cyberRequest(insurance.Answers{"has-firewall": true}))
	require.NoError(t, err)
	cancel()

	require.NoError(t, svc.Wait(context.Background()))
	require.Len(t, rec.recorded(), 1)
	assert.NoError(t, rec.ctxErr)
}

func TestGenerate_Idempotent(t *testing.T) {
	svc := newTestService(t, seededStore(t))
	req := cyberRequest(insurance.Answers{"has-firewall": true, "records-held": 5})

	first, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecide(t *testing.T) {
	svc := newTestService(t, seededStore(t))

	rejection, err := svc.Decide(cyberRequest(insurance.Answers{"previous-breach": true}))
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, "true", rejection.Answer)

	rejection, err = svc.Decide(cyberRequest(insurance.Answers{"previous-breach": false}))
	require.NoError(t, err)
	assert.Nil(t, rejection)

	_, err = svc.Decide(cyberRequest(insurance.Answers{"unknown-question": true}))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

type blockingRecorder struct {
	release chan struct{}
}

func (blockingRecorder) Name() string { return "blocking" }

func (r blockingRecorder) Record(ctx context.Context, _ Record) error {
	select {
	case <-r.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestWait_HonoursContext(t *testing.T) {
	rec := blockingRecorder{release: make(chan struct{})}
	svc := newTestService(t, seededStore(t), WithRecorder(rec), WithRecordTimeout(time.Minute))

	_, err := svc.Generate(context.Background(), cyberRequest(insurance.Answers{"has-firewall": true}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)

	close(rec.release)
	assert.NoError(t, svc.Wait(context.Background()))
}
