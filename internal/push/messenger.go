package push

import (
	"context"
	"maps"
)

// MaxBatchSize is the per-call token limit of the multicast API.
const MaxBatchSize = 500

// Notification is the rendered push: title, body, optional image and a flat data payload.
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	ImageURL string            `json:"imageUrl,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

func (n Notification) withData(key, value string) Notification {
	data := make(map[string]string, len(n.Data)+1)
	maps.Copy(data, n.Data)
	data[key] = value
	n.Data = data
	return n
}

// payloadSize approximates the encoded size the platform counts against MaxPayloadBytes.
func (n Notification) payloadSize() int {
	size := len(n.Title) + len(n.Body) + len(n.ImageURL)
	for key, value := range n.Data {
		size += len(key) + len(value)
	}
	return size
}

// TokenResult is the outcome for one device token.
type TokenResult struct {
	Token     string `json:"token"`
	MessageID string `json:"messageId,omitempty"`
	Error     error  `json:"-"`
	// Invalid marks tokens the platform reports as unregistered or malformed;
	// they should be pruned from the owning user.
	Invalid bool `json:"invalid,omitempty"`
}

func (r TokenResult) Success() bool {
	return r.Error == nil
}

// Messenger sends one multicast call. It returns one result per token in
// input order, or an error when the whole call failed.
type Messenger interface {
	SendMulticast(ctx context.Context, tokens []string, notification Notification) ([]TokenResult, error)
}
