package models

// PushType is the apns-push-type header value.
type PushType string

const (
	PushTypeAlert      PushType = "alert"
	PushTypeBackground PushType = "background"
)

// MaxPayloadSize is the largest payload APNs accepts for a regular push.
const MaxPayloadSize = 4096

// NormalizedPushMessage is a push ready to be handed to the gateway.
type NormalizedPushMessage struct {
	PushType   PushType
	CollapseID string
	Payload    []byte
}
