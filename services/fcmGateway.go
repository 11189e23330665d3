package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/PushRelay/models"
)

// fcmSender is the part of *messaging.Client the gateway needs.
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMGateway delivers through Firebase Cloud Messaging, which forwards the
// APNs config to Apple. Device tokens are FCM registration tokens.
type FCMGateway struct {
	client fcmSender
}

func NewFCMGateway(client fcmSender) *FCMGateway {
	return &FCMGateway{client: client}
}

func (g *FCMGateway) Name() string {
	return "fcm"
}

func (g *FCMGateway) Send(ctx context.Context, n GatewayNotification) error {
	message, err := buildFCMMessage(n)
	if err != nil {
		return err
	}

	name, err := g.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("fcm: %w", err)
	}
	slog.Debug("fcm accepted push", slog.String("fcm_message", name), slog.String("message_id", n.ID))
	return nil
}

func buildFCMMessage(n GatewayNotification) (*messaging.Message, error) {
	// Numbers stay json.Number so large ids reach Firebase unchanged.
	decoder := json.NewDecoder(bytes.NewReader(n.Message.Payload))
	decoder.UseNumber()

	var payload map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("fcm: decode payload: %w", err)
	}
	aps, _ := payload["aps"].(map[string]interface{})
	delete(payload, "aps")

	headers := map[string]string{
		"apns-push-type": string(n.Message.PushType),
		"apns-topic":     n.Topic,
		"apns-priority":  "10",
	}
	if n.Message.PushType == models.PushTypeBackground {
		headers["apns-priority"] = "5"
	}
	if n.Message.CollapseID != "" {
		headers["apns-collapse-id"] = n.Message.CollapseID
	}

	return &messaging.Message{
		Token: n.DeviceToken,
		APNS: &messaging.APNSConfig{
			Headers: headers,
			Payload: &messaging.APNSPayload{
				Aps:        &messaging.Aps{CustomData: aps},
				CustomData: payload,
			},
		},
	}, nil
}
