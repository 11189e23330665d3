package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PushRelay/models"
	"github.com/PushRelay/ratelimit"
	"github.com/google/uuid"
)

const (
	encryptedAlertTitle = "Encrypted Notification"
	encryptedAlertBody  = "If you're seeing this message, decryption failed."
)

// RelayResult describes a push the gateway accepted.
type RelayResult struct {
	MessageID string
	Message   models.NormalizedPushMessage
	Record    ratelimit.Record
}

// RelayDispatcher runs one send request: validate, build the push, hand it to
// the gateway once, then count the outcome against the device token.
type RelayDispatcher struct {
	gateway     PushGateway
	limiter     *ratelimit.Limiter
	appIDPrefix string
	metrics     *Metrics
	newID       func() string
}

func NewRelayDispatcher(gateway PushGateway, limiter *ratelimit.Limiter, appIDPrefix string, metrics *Metrics) *RelayDispatcher {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &RelayDispatcher{
		gateway:     gateway,
		limiter:     limiter,
		appIDPrefix: appIDPrefix,
		metrics:     metrics,
		newID:       uuid.NewString,
	}
}

func (d *RelayDispatcher) Maximum() int64 {
	return d.limiter.Maximum()
}

func (d *RelayDispatcher) Metrics() *Metrics {
	return d.metrics
}

func (d *RelayDispatcher) Send(ctx context.Context, req models.PushSendRequest) (*RelayResult, error) {
	if !strings.HasPrefix(req.RegistrationInfo.AppID, d.appIDPrefix) {
		d.metrics.Add("push.rejected", 1, map[string]string{"reason": "app_id"})
		return nil, ErrInvalidAppID
	}

	msg, err := d.buildMessage(req)
	if err != nil {
		d.metrics.Add("push.rejected", 1, map[string]string{"reason": "payload"})
		return nil, err
	}

	id := d.newID()
	sendErr := d.gateway.Send(ctx, GatewayNotification{
		ID:          id,
		DeviceToken: req.PushToken,
		Topic:       req.RegistrationInfo.AppID,
		Message:     msg,
	})
	if sendErr != nil && ctx.Err() != nil {
		// No outcome was observed, so nothing is counted.
		d.metrics.Add("push.cancelled", 1, nil)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryCancelled, sendErr)
	}

	kind := ratelimit.Successful
	if sendErr != nil {
		kind = ratelimit.Error
	}
	// The gateway answered; record it even if the caller goes away meanwhile.
	rec, err := d.limiter.Increment(context.WithoutCancel(ctx), req.PushToken, kind)
	if err != nil {
		slog.Error("failed to record push outcome",
			slog.String("token", redactToken(req.PushToken)),
			slog.String("outcome", string(kind)),
			slog.Any("send_error", sendErr),
			slog.Any("error", err))
		return nil, &StorageError{Err: err}
	}

	if rec.ExceedsMaximum(d.limiter.Maximum()) {
		slog.Warn("device exceeded daily push maximum",
			slog.String("token", redactToken(req.PushToken)),
			slog.Int64("total", rec.Total()),
			slog.Int64("maximum", d.limiter.Maximum()))
	}

	if sendErr != nil {
		d.metrics.Add("push.failed", 1, map[string]string{"gateway": d.gateway.Name()})
		slog.Warn("push delivery failed",
			slog.String("token", redactToken(req.PushToken)),
			slog.String("message_id", id),
			slog.Any("error", sendErr))
		return nil, &UpstreamError{Gateway: d.gateway.Name(), Record: rec, Err: sendErr}
	}

	d.metrics.Add("push.sent", 1, map[string]string{"gateway": d.gateway.Name(), "push_type": string(msg.PushType)})
	slog.Info("push sent",
		slog.String("token", redactToken(req.PushToken)),
		slog.String("message_id", id),
		slog.String("push_type", string(msg.PushType)),
		slog.Bool("encrypted", req.Encrypted))
	return &RelayResult{MessageID: id, Message: msg, Record: rec}, nil
}

// RateLimits reads the current window for token without changing it.
func (d *RelayDispatcher) RateLimits(ctx context.Context, token string) (ratelimit.Record, error) {
	rec, err := d.limiter.Read(ctx, token)
	if err != nil {
		return ratelimit.Record{}, &StorageError{Err: err}
	}
	return rec, nil
}

func (d *RelayDispatcher) Ping(ctx context.Context) error {
	return d.limiter.Ping(ctx)
}

func (d *RelayDispatcher) buildMessage(req models.PushSendRequest) (models.NormalizedPushMessage, error) {
	var (
		msg models.NormalizedPushMessage
		err error
	)
	if req.Encrypted {
		if req.EncryptedData == nil || *req.EncryptedData == "" {
			return msg, ErrMissingEncryptedData
		}
		msg, err = encryptedMessage(*req.EncryptedData, req.RegistrationInfo.WebhookID)
	} else {
		msg, err = NormalizeLegacyPayload(req.LegacyPayload)
	}
	if err != nil {
		return msg, err
	}

	if len(msg.Payload) > models.MaxPayloadSize {
		return msg, fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(msg.Payload), models.MaxPayloadSize)
	}
	return msg, nil
}

func encryptedMessage(data, webhookID string) (models.NormalizedPushMessage, error) {
	payload := map[string]any{
		"aps": map[string]any{
			"alert": map[string]any{
				"title": encryptedAlertTitle,
				"body":  encryptedAlertBody,
			},
			"mutable-content": 1,
		},
		"encrypted":     true,
		"encryptedData": data,
	}
	if webhookID != "" {
		payload["webhook_id"] = webhookID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return models.NormalizedPushMessage{}, fmt.Errorf("marshal encrypted payload: %w", err)
	}
	return models.NormalizedPushMessage{PushType: models.PushTypeAlert, Payload: body}, nil
}

func redactToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
