// Package apierror turns API error payloads into one human readable message.
//
// The API answers errors in several shapes: a bare JSON string, an object
// with "detail", an object with an "errors" map of field messages, an object
// with "message", or a body that is not JSON at all (proxy pages, crashes).
// Message applies one precedence order to all of them:
//
//	JSON string > detail > errors (joined) > message > status text
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

func Message(status int, body []byte) string {
	var raw any
	if err := json.Unmarshal(body, &raw); err == nil {
		switch v := raw.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case map[string]any:
			if msg := fromObject(v); msg != "" {
				return msg
			}
		}
	}

	return StatusText(status)
}

// StatusText is the last resort message
func StatusText(status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown Status"
	}
	return fmt.Sprintf("Error %d: %s", status, text)
}

func fromObject(obj map[string]any) string {
	if detail, ok := obj["detail"].(string); ok && detail != "" {
		return detail
	}

	if errs, ok := obj["errors"].(map[string]any); ok {
		if joined := joinErrors(errs); joined != "" {
			return joined
		}
	}

	if message, ok := obj["message"].(string); ok && message != "" {
		return message
	}

	return ""
}

// Flatten field messages in key order so the same payload always gives the same text
func joinErrors(errs map[string]any) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var parts []string
	for _, k := range keys {
		parts = appendMessages(parts, errs[k])
	}

	return strings.Join(parts, ", ")
}

func appendMessages(dst []string, v any) []string {
	switch v := v.(type) {
	case string:
		if v != "" {
			dst = append(dst, v)
		}
	case []any:
		for _, item := range v {
			dst = appendMessages(dst, item)
		}
	}
	return dst
}
