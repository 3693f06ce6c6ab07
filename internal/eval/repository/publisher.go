// Package repository handles delivery of finished evaluation reports to
// downstream consumers (the submission store, notification fan-out).
package repository

import (
	"context"
	"encoding/json"
	"time"

	"codeval/internal/eval/model"
	appErr "codeval/pkg/errors"

	"github.com/segmentio/kafka-go"
)

// ReportPublisher delivers completed reports downstream. Publishing is
// best-effort from the caller's point of view: the evaluation result is
// already final when this runs.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report model.EvaluationReport) error
	Close() error
}

// KafkaConfig configures the report producer.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	ClientID     string        `yaml:"clientID"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

func (c KafkaConfig) withDefaults() KafkaConfig {
	if c.Topic == "" {
		c.Topic = "evaluation.reports"
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 50 * time.Millisecond
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

// KafkaPublisher writes one JSON message per report, keyed by
// submission id so per-submission ordering is preserved.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Brokers) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	return &KafkaPublisher{writer: writer}, nil
}

func (p *KafkaPublisher) PublishReport(ctx context.Context, report model.EvaluationReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return appErr.Wrap(err, appErr.ReportPublishFailed)
	}
	msg := kafka.Message{
		Key:   []byte(report.SubmissionID),
		Value: body,
		Time:  report.CreatedAt,
		Headers: []kafka.Header{
			{Key: "x-problem-id", Value: []byte(report.ProblemID)},
			{Key: "x-status", Value: []byte(string(report.Status))},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return appErr.Wrapf(err, appErr.ReportPublishFailed, "publish report for submission %s failed", report.SubmissionID)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops reports. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishReport(context.Context, model.EvaluationReport) error { return nil }
func (NoopPublisher) Close() error                                                { return nil }
