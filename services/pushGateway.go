package services

import (
	"context"

	"github.com/PushRelay/models"
)

// GatewayNotification is one push handed to a PushGateway.
type GatewayNotification struct {
	ID          string
	DeviceToken string
	Topic       string
	Message     models.NormalizedPushMessage
}

// PushGateway delivers a single push. Implementations make exactly one attempt
// and honour ctx cancellation; a non-nil error means the push was not accepted.
type PushGateway interface {
	Name() string
	Send(ctx context.Context, n GatewayNotification) error
}
