package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PushRelay/models"
	"github.com/sideshow/apns2"
)

// APNSGateway talks to Apple's push service over HTTP/2. Connection reuse is
// handled by the apns2 client.
type APNSGateway struct {
	client *apns2.Client
}

func NewAPNSGateway(client *apns2.Client) *APNSGateway {
	return &APNSGateway{client: client}
}

func (g *APNSGateway) Name() string {
	return "apns"
}

func (g *APNSGateway) Send(ctx context.Context, n GatewayNotification) error {
	notification := &apns2.Notification{
		ApnsID:      n.ID,
		DeviceToken: n.DeviceToken,
		Topic:       n.Topic,
		CollapseID:  n.Message.CollapseID,
		Payload:     n.Message.Payload,
		PushType:    apns2.PushTypeAlert,
		Priority:    apns2.PriorityHigh,
	}
	if n.Message.PushType == models.PushTypeBackground {
		// APNs rejects background pushes sent with priority 10.
		notification.PushType = apns2.PushTypeBackground
		notification.Priority = apns2.PriorityLow
	}

	res, err := g.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("apns: %w", err)
	}
	if !res.Sent() {
		slog.Warn("apns rejected push", slog.Int("status", res.StatusCode), slog.String("reason", res.Reason), slog.String("apns_id", res.ApnsID))
		return fmt.Errorf("apns: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}
