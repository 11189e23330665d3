package models

// RegistrationInfo identifies the client build that registered the push token.
type RegistrationInfo struct {
	AppID      string `json:"app_id" binding:"required"`
	AppVersion string `json:"app_version"`
	OSVersion  string `json:"os_version"`
	WebhookID  string `json:"webhook_id,omitempty"`
}

// PushSendRequest is the envelope of a POST /push/send body. When Encrypted is
// false the remainder of the body is the legacy notification payload.
type PushSendRequest struct {
	PushToken        string           `json:"push_token" binding:"required"`
	RegistrationInfo RegistrationInfo `json:"registration_info" binding:"required"`
	Encrypted        bool             `json:"encrypted"`
	EncryptedData    *string          `json:"encrypted_data,omitempty"`
	LegacyPayload    map[string]any   `json:"-"`
}

// EnvelopeKeys are the body keys that belong to the envelope and are never
// forwarded to the device as part of a legacy payload.
var EnvelopeKeys = []string{"push_token", "registration_info", "encrypted", "encrypted_data"}

type RateLimitRequest struct {
	PushToken string `json:"push_token" binding:"required"`
}
