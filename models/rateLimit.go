package models

import "time"

type RateLimits struct {
	Successful int64     `json:"successful"`
	Errors     int64     `json:"errors"`
	Maximum    int64     `json:"maximum"`
	Remaining  int64     `json:"remaining"`
	ResetsAt   time.Time `json:"resets_at"`
}

type PushSendResponse struct {
	Target             string     `json:"target"`
	MessageID          string     `json:"message_id"`
	PushType           PushType   `json:"push_type"`
	CollapseIdentifier *string    `json:"collapse_identifier,omitempty"`
	RateLimits         RateLimits `json:"rate_limits"`
	SentPayload        string     `json:"sent_payload"`
}

type RateLimitResponse struct {
	Target     string     `json:"target"`
	RateLimits RateLimits `json:"rate_limits"`
}
