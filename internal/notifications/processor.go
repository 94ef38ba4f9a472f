package notifications

import (
	"context"
	"errors"
	"log/slog"

	"seatflow/pkg/logger"
)

const (
	SourceWebhook = "webhook"
	SourceKafka   = "kafka"
)

// Processor decodes raw change-feed messages and hands them to a Handler.
// Webhooks and the Kafka consumer share it so both paths behave the same.
type Processor struct {
	handler Handler
	log     *logger.Logger
}

func NewProcessor(handler Handler) *Processor {
	return &Processor{handler: handler, log: logger.GetDefault()}
}

// Process returns ErrMalformed or ErrUnknownKind for messages that will never
// succeed; any other error comes from the handler and may be retried.
func (p *Processor) Process(ctx context.Context, data []byte, source string) (Notification, error) {
	n, err := Decode(data)
	if err != nil {
		p.log.WarnContext(ctx, "notification rejected",
			slog.String("source", source),
			slog.String("error", err.Error()))
		return nil, err
	}

	if err := p.Handle(ctx, n, source); err != nil {
		return n, err
	}
	return n, nil
}

func (p *Processor) Handle(ctx context.Context, n Notification, source string) error {
	if err := n.Dispatch(ctx, p.handler); err != nil {
		p.log.ErrorContext(ctx, "notification handling failed",
			slog.String("kind", string(n.Kind())),
			slog.Int64("external_event_id", n.ExternalEventID()),
			slog.String("source", source),
			slog.String("error", err.Error()))
		return err
	}

	p.log.LogNotificationHandled(ctx, string(n.Kind()), n.ExternalEventID(), source)
	return nil
}

// IsPermanent reports whether a Process error means the message should be dropped
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrUnknownKind)
}
