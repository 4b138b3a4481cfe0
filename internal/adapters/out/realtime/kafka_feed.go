package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("ordersync/realtime/kafka")

// KafkaConfig selects the topic order changes are published to. GroupID is
// the prefix of the consumer groups subscriptions create.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Validate reports every missing setting at once.
func (c KafkaConfig) Validate() error {
	var brokersErr, topicErr, groupErr error
	if len(c.Brokers) == 0 {
		brokersErr = errs.NewValueIsRequiredError("kafka brokers")
	}
	if c.Topic == "" {
		topicErr = errs.NewValueIsRequiredError("kafka topic")
	}
	if c.GroupID == "" {
		groupErr = errs.NewValueIsRequiredError("kafka consumer group")
	}
	return errors.Join(brokersErr, topicErr, groupErr)
}

// KafkaFeed reads order change envelopes from a Kafka topic.
//
// Every subscription reads through its own consumer group, so each session
// sees every partition of the topic. Readers start at the latest offset:
// history is covered by reloads, not by replay.
type KafkaFeed struct {
	cfg    KafkaConfig
	logger *slog.Logger
}

func NewKafkaFeed(cfg KafkaConfig, logger *slog.Logger) (*KafkaFeed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaFeed{cfg: cfg, logger: logger.With("component", "KafkaFeed")}, nil
}

func (f *KafkaFeed) Subscribe(ctx context.Context, scope kernel.Scope) (ports.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.ErrSessionEnded
	}

	group := ConsumerGroup(f.cfg.GroupID, scope, kernel.NewUUID().String())
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     f.cfg.Brokers,
		Topic:       f.cfg.Topic,
		GroupID:     group,
		StartOffset: kafka.LastOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			f.logger.Warn(fmt.Sprintf(msg, args...))
		}),
	})

	sub, subCtx := newSubscription(ctx)
	go func() {
		err := f.consume(subCtx, reader, group, scope, sub)
		if closeErr := reader.Close(); closeErr != nil {
			f.logger.Debug("Failed to close kafka reader", "error", closeErr)
		}
		sub.finish(err)
	}()

	f.logger.InfoContext(ctx, "Subscribed to order changes",
		"topic", f.cfg.Topic, "group", group, "scope", scope.String())
	return sub, nil
}

// ConsumerGroup names the group of one subscription. A shared group would
// split the partitions between sessions and each would miss the changes of
// the others.
func ConsumerGroup(prefix string, scope kernel.Scope, instance string) string {
	return prefix + "." + scope.String() + "." + instance
}

func (f *KafkaFeed) consume(ctx context.Context, reader *kafka.Reader, group string, scope kernel.Scope, sub *subscription) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.NewNetworkErrorWithCause("fetch order change", err)
		}

		if !f.process(ctx, msg, group, scope, sub) {
			return ctx.Err()
		}

		if err = reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.NewNetworkErrorWithCause("commit order change", err)
		}
	}
}

// process decodes and delivers one message. It returns false only when the
// subscription was cancelled before the event could be handed over.
func (f *KafkaFeed) process(ctx context.Context, msg kafka.Message, group string, scope kernel.Scope, sub *subscription) bool {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, NewMessageCarrier(&msg))

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+f.cfg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(f.cfg.Topic),
			semconv.MessagingKafkaConsumerGroup(group),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
		),
	)
	defer span.End()

	ev, err := Decode(msg.Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.logger.WarnContext(spanCtx, "Skipping undecodable order change", "offset", msg.Offset, "error", err)
		return true
	}
	if !inScope(scope, ev) {
		return true
	}
	return sub.deliver(ctx, ev)
}
