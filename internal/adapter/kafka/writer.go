package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/rows"
	"github.com/couchcryptid/flare-attribution-engine/internal/config"
	"github.com/couchcryptid/flare-attribution-engine/internal/observability"
	"github.com/couchcryptid/flare-attribution-engine/internal/pipeline"
)

// Record types carried in the record_type header.
const (
	RecordHotspot    = "hotspot"
	RecordMatch      = "match"
	RecordCollocated = "collocated"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes orbit results to a Kafka topic, one message per row.
// It implements pipeline.ResultWriter and pipeline.CollocatedWriter.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// WriteOrbit publishes the orbit's hotspot cells and matches in a single
// WriteMessages call. Sample cells stay in the parquet output.
func (w *Writer) WriteOrbit(ctx context.Context, res *pipeline.OrbitResult) error {
	hotspots := rows.Hotspots(res)
	matches := rows.Matches(res)
	msgs := make([]kafkago.Message, 0, len(hotspots)+len(matches))
	for _, h := range hotspots {
		msg, err := serializeToMessage(RecordHotspot, fmt.Sprintf("%s/%d/%d", h.Orbit, h.LatsArcmin, h.LonsArcmin), h, h.Sensor, res.RunID, res.ProcessedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	for _, m := range matches {
		msg, err := serializeToMessage(RecordMatch, strconv.FormatInt(m.FlareID, 10), m, m.Sensor, res.RunID, res.ProcessedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return w.publish(ctx, msgs)
}

// WriteCollocated publishes one message per collocated flare.
func (w *Writer) WriteCollocated(ctx context.Context, res *pipeline.CollocatedResult) error {
	flares := rows.CollocatedFlares(res)
	msgs := make([]kafkago.Message, 0, len(flares))
	for _, f := range flares {
		msg, err := serializeToMessage(RecordCollocated, strconv.FormatInt(f.FlareID, 10), f, f.PrimarySensor, res.RunID, res.ProcessedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return w.publish(ctx, msgs)
}

func (w *Writer) publish(ctx context.Context, msgs []kafkago.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d records: %w", len(msgs), err)
	}
	w.metrics.RecordsPublished.Add(float64(len(msgs)))
	w.logger.Debug("records published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a row into a Kafka message.
func serializeToMessage(recordType, key string, row any, sensor, runID string, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", recordType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordType)},
			{Key: "sensor", Value: []byte(sensor)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
