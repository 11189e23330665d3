package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/PushRelay/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFCMSender struct {
	messages []*messaging.Message
	err      error
}

func (f *fakeFCMSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.messages = append(f.messages, message)
	if f.err != nil {
		return "", f.err
	}
	return "projects/test/messages/1", nil
}

func TestBuildFCMMessage(t *testing.T) {
	msg, err := buildFCMMessage(GatewayNotification{
		DeviceToken: "fcm-token",
		Topic:       "io.robbie.HomeAssistant",
		Message: models.NormalizedPushMessage{
			PushType:   models.PushTypeBackground,
			CollapseID: "tag-1",
			Payload:    []byte(`{"aps":{"content-available":1},"webhook_id":"abc"}`),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "fcm-token", msg.Token)
	require.NotNil(t, msg.APNS)
	assert.Equal(t, map[string]string{
		"apns-push-type":   "background",
		"apns-topic":       "io.robbie.HomeAssistant",
		"apns-priority":    "5",
		"apns-collapse-id": "tag-1",
	}, msg.APNS.Headers)
	assert.Equal(t, map[string]interface{}{"content-available": json.Number("1")}, msg.APNS.Payload.Aps.CustomData)
	assert.Equal(t, map[string]interface{}{"webhook_id": "abc"}, msg.APNS.Payload.CustomData)
}

func TestBuildFCMMessage_KeepsLargeIntegers(t *testing.T) {
	msg, err := buildFCMMessage(GatewayNotification{
		DeviceToken: "fcm-token",
		Message: models.NormalizedPushMessage{
			PushType: models.PushTypeAlert,
			Payload:  []byte(`{"aps":{"badge":3},"data":{"entity_id":9007199254740993,"ratio":0.25}}`),
		},
	})
	require.NoError(t, err)

	data, ok := msg.APNS.Payload.CustomData["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, json.Number("9007199254740993"), data["entity_id"])
	assert.Equal(t, json.Number("0.25"), data["ratio"])
	assert.Equal(t, json.Number("3"), msg.APNS.Payload.Aps.CustomData["badge"])

	// The APNs config Firebase forwards must carry the same digits.
	encoded, err := json.Marshal(msg.APNS.Payload.CustomData)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"entity_id":9007199254740993`)
}

func TestBuildFCMMessage_InvalidPayload(t *testing.T) {
	_, err := buildFCMMessage(GatewayNotification{Message: models.NormalizedPushMessage{Payload: []byte("not json")}})
	assert.Error(t, err)
}

func TestFCMGateway_Send(t *testing.T) {
	sender := &fakeFCMSender{}
	gateway := NewFCMGateway(sender)

	err := gateway.Send(context.Background(), GatewayNotification{
		DeviceToken: "fcm-token",
		Topic:       "io.robbie.HomeAssistant",
		Message:     models.NormalizedPushMessage{PushType: models.PushTypeAlert, Payload: []byte(`{"aps":{"alert":"hi"}}`)},
	})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Equal(t, "10", sender.messages[0].APNS.Headers["apns-priority"])

	sender.err = errors.New("registration-token-not-registered")
	err = gateway.Send(context.Background(), GatewayNotification{
		DeviceToken: "stale",
		Message:     models.NormalizedPushMessage{PushType: models.PushTypeAlert, Payload: []byte(`{"aps":{}}`)},
	})
	assert.ErrorContains(t, err, "registration-token-not-registered")
}
