package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PushRelay/models"
)

// Messages that are instructions for the app rather than text for the user.
var legacyCommands = map[string]bool{
	"request_location_update": true,
	"clear_notification":      true,
	"update_complications":    true,
	"update_widgets":          true,
}

type legacyTranslation struct {
	pushType     models.PushType
	explicitType bool
	collapseID   string
	command      string
}

// legacyRule reads one key path of a legacy payload. Consumed keys are headers
// and are removed from the forwarded payload.
type legacyRule struct {
	path    []string
	consume bool
	apply   func(t *legacyTranslation, value any)
}

// Order matters: explicit hints run before the fallbacks that check them.
var legacyRules = []legacyRule{
	{
		path:    []string{"apns-push-type"},
		consume: true,
		apply: func(t *legacyTranslation, value any) {
			s, _ := value.(string)
			switch models.PushType(strings.ToLower(strings.TrimSpace(s))) {
			case models.PushTypeAlert:
				t.pushType, t.explicitType = models.PushTypeAlert, true
			case models.PushTypeBackground:
				t.pushType, t.explicitType = models.PushTypeBackground, true
			}
		},
	},
	{
		path:    []string{"apns-collapse-id"},
		consume: true,
		apply: func(t *legacyTranslation, value any) {
			if s, ok := value.(string); ok && s != "" {
				t.collapseID = s
			}
		},
	},
	{
		path: []string{"data", "tag"},
		apply: func(t *legacyTranslation, value any) {
			if s, ok := value.(string); ok && s != "" && t.collapseID == "" {
				t.collapseID = s
			}
		},
	},
	{
		path: []string{"message"},
		apply: func(t *legacyTranslation, value any) {
			s, _ := value.(string)
			if !legacyCommands[s] {
				return
			}
			t.command = s
			if !t.explicitType {
				t.pushType = models.PushTypeBackground
			}
		},
	},
}

// TranslateLegacyPayload turns a legacy notification dictionary into APNs
// headers and a payload. Unknown keys are forwarded untouched and the input is
// never modified, so the same input always yields the same output.
func TranslateLegacyPayload(legacy map[string]any) (map[string]any, map[string]any) {
	payload := deepCopyMap(legacy)
	t := &legacyTranslation{pushType: models.PushTypeAlert}

	for _, rule := range legacyRules {
		value, ok := lookupPath(payload, rule.path)
		if !ok {
			continue
		}
		rule.apply(t, value)
	}
	for _, rule := range legacyRules {
		if rule.consume && len(rule.path) == 1 {
			delete(payload, rule.path[0])
		}
	}

	if t.command != "" {
		if ha, ok := payload["homeassistant"].(map[string]any); ok {
			ha["command"] = t.command
		} else {
			payload["homeassistant"] = map[string]any{"command": t.command}
		}
	}

	aps, ok := payload["aps"].(map[string]any)
	if !ok {
		aps = buildAps(payload, t)
		payload["aps"] = aps
	}
	if t.pushType == models.PushTypeBackground {
		aps["content-available"] = 1
	}

	headers := map[string]any{"apns-push-type": string(t.pushType)}
	if t.collapseID != "" {
		headers["apns-collapse-id"] = t.collapseID
	}
	return headers, payload
}

// NormalizeLegacyPayload translates and serializes a legacy payload.
func NormalizeLegacyPayload(legacy map[string]any) (models.NormalizedPushMessage, error) {
	headers, payload := TranslateLegacyPayload(legacy)

	body, err := json.Marshal(payload)
	if err != nil {
		return models.NormalizedPushMessage{}, fmt.Errorf("marshal legacy payload: %w", err)
	}

	msg := models.NormalizedPushMessage{
		PushType: models.PushType(headers["apns-push-type"].(string)),
		Payload:  body,
	}
	if id, ok := headers["apns-collapse-id"].(string); ok {
		msg.CollapseID = id
	}
	return msg, nil
}

func buildAps(payload map[string]any, t *legacyTranslation) map[string]any {
	aps := map[string]any{}
	data, _ := payload["data"].(map[string]any)

	if t.pushType == models.PushTypeAlert {
		alert := map[string]any{}
		if title, ok := payload["title"].(string); ok && title != "" {
			alert["title"] = title
		}
		if subtitle, ok := data["subtitle"].(string); ok && subtitle != "" {
			alert["subtitle"] = subtitle
		}
		if message, ok := payload["message"].(string); ok && message != "" && t.command == "" {
			alert["body"] = message
		}
		if len(alert) > 0 {
			aps["alert"] = alert
		}
	}

	if push, ok := data["push"].(map[string]any); ok {
		for k, v := range push {
			aps[k] = v
		}
	}
	if group, ok := data["group"].(string); ok && group != "" {
		if _, set := aps["thread-id"]; !set {
			aps["thread-id"] = group
		}
	}
	return aps
}

func lookupPath(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}
