package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/liamcoop/quoting/insurance"
)

const EventQuotesGenerated = "quotes.generated"

// MessageWriter is the part of *kafka.Writer the recorder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer that keys messages onto partitions by hash,
// so every event of one request lands on the same partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// KafkaRecorder publishes one event per priced request.
type KafkaRecorder struct {
	writer MessageWriter
}

func NewKafkaRecorder(w MessageWriter) *KafkaRecorder {
	return &KafkaRecorder{writer: w}
}

func (r *KafkaRecorder) Name() string {
	return "kafka"
}

type quotedProduct struct {
	ProductID      string          `json:"productId"`
	InsurerID      string          `json:"insurerId"`
	MonthlyPremium decimal.Decimal `json:"monthlyPremium"`
	AnnualPremium  decimal.Decimal `json:"annualPremium"`
	CoverageAmount decimal.Decimal `json:"coverageAmount"`
	Deductible     decimal.Decimal `json:"deductible"`
}

// GeneratedEvent is the payload of a quotes.generated message.
type GeneratedEvent struct {
	RequestID     string                  `json:"requestId"`
	InsuranceType insurance.InsuranceType `json:"insuranceType"`
	Business      string                  `json:"businessName"`
	Email         string                  `json:"email"`
	Quotes        []quotedProduct         `json:"quotes"`
	ValidUntil    time.Time               `json:"validUntil"`
	CreatedAt     time.Time               `json:"createdAt"`
}

func newGeneratedEvent(rec Record) GeneratedEvent {
	quotes := make([]quotedProduct, len(rec.Quotes))
	for i, q := range rec.Quotes {
		quotes[i] = quotedProduct{
			ProductID:      q.ProductID,
			InsurerID:      q.InsurerID,
			MonthlyPremium: q.MonthlyAmount,
			AnnualPremium:  q.AnnualAmount,
			CoverageAmount: q.CoverageAmount,
			Deductible:     q.Deductible,
		}
	}
	return GeneratedEvent{
		RequestID:     rec.RequestID,
		InsuranceType: rec.Request.InsuranceType,
		Business:      rec.Request.BusinessDetails.Name,
		Email:         rec.Request.ContactDetails.Email,
		Quotes:        quotes,
		ValidUntil:    rec.ValidUntil,
		CreatedAt:     rec.CreatedAt,
	}
}

func (r *KafkaRecorder) Record(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(newGeneratedEvent(rec))
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(rec.RequestID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventQuotesGenerated)},
			{Key: "insurance-type", Value: []byte(rec.Request.InsuranceType)},
		},
		Time: rec.CreatedAt,
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
