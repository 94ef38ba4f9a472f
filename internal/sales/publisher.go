package sales

import "context"

// Publisher announces sales that reached the confirmed outcome. Publishing is
// best-effort: failures are logged by the caller and never change the sale.
type Publisher interface {
	PublishSaleConfirmed(ctx context.Context, sale *Sale) error
}

type nopPublisher struct{}

// NopPublisher is used when no message broker is configured
func NopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) PublishSaleConfirmed(context.Context, *Sale) error {
	return nil
}
