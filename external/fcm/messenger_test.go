package fcm

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/platform/resilience"
	"github.com/riskibarqy/rugby-live/internal/push"
)

var errUnregistered = errors.New("requested entity was not found")

type fakeSender struct {
	calls    int
	last     *messaging.MulticastMessage
	response func(tokens []string) *messaging.BatchResponse
	err      error
}

func (f *fakeSender) SendEachForMulticast(_ context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.calls++
	f.last = message
	if f.err != nil {
		return nil, f.err
	}
	return f.response(message.Tokens), nil
}

func newTestMessenger(sender MulticastSender, cfg MessengerConfig) *Messenger {
	cfg.Logger = logging.NewNop()
	m := NewMessenger(sender, cfg)
	m.isInvalidToken = func(err error) bool { return errors.Is(err, errUnregistered) }
	return m
}

func TestMessenger_MapsPerTokenResults(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{response: func(tokens []string) *messaging.BatchResponse {
		return &messaging.BatchResponse{
			SuccessCount: 1,
			FailureCount: 2,
			Responses: []*messaging.SendResponse{
				{Success: true, MessageID: "projects/p/messages/1"},
				{Error: errUnregistered},
				{Error: errors.New("internal error")},
			},
		}
	}}
	messenger := newTestMessenger(sender, MessengerConfig{})

	results, err := messenger.SendMulticast(context.Background(), []string{"a", "b", "c"}, push.Notification{
		Title:    "Essai !",
		Body:     "home - A. Dupont (48')",
		ImageURL: "https://media.example/logo.png",
		Data:     map[string]string{"matchId": "49925"},
	})
	if err != nil {
		t.Fatalf("send multicast: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected three results, got %d", len(results))
	}
	if !results[0].Success() || results[0].MessageID == "" {
		t.Fatalf("expected first token success, got %+v", results[0])
	}
	if results[1].Success() || !results[1].Invalid {
		t.Fatalf("expected second token invalid, got %+v", results[1])
	}
	if results[2].Success() || results[2].Invalid {
		t.Fatalf("expected third token failed but valid, got %+v", results[2])
	}

	msg := sender.last
	if msg.Notification.Title != "Essai !" || msg.Notification.ImageURL == "" || msg.Data["matchId"] != "49925" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Android == nil || msg.Android.Priority != "high" {
		t.Fatalf("expected high android priority")
	}
}

func TestMessenger_RejectsOversizedBatch(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	messenger := newTestMessenger(sender, MessengerConfig{})

	tokens := make([]string, push.MaxBatchSize+1)
	if _, err := messenger.SendMulticast(context.Background(), tokens, push.Notification{Title: "t", Body: "b"}); err == nil {
		t.Fatalf("expected oversized batch to be rejected")
	}
	if sender.calls != 0 {
		t.Fatalf("sender must not be called")
	}
}

func TestMessenger_ResponseCountMismatch(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{response: func([]string) *messaging.BatchResponse {
		return &messaging.BatchResponse{Responses: []*messaging.SendResponse{{Success: true}}}
	}}
	messenger := newTestMessenger(sender, MessengerConfig{})

	if _, err := messenger.SendMulticast(context.Background(), []string{"a", "b"}, push.Notification{Title: "t", Body: "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestMessenger_CallErrorsOpenCircuit(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errors.New("connection reset")}
	messenger := newTestMessenger(sender, MessengerConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
	}})

	for i := 0; i < 2; i++ {
		if _, err := messenger.SendMulticast(context.Background(), []string{"a"}, push.Notification{Title: "t", Body: "b"}); err == nil {
			t.Fatalf("expected call %d to fail", i)
		}
	}
	if sender.calls != 1 {
		t.Fatalf("expected open breaker to skip the second call, got %d calls", sender.calls)
	}
}

func TestIsInvalidTokenError_PlainErrors(t *testing.T) {
	t.Parallel()

	if isInvalidTokenError(nil) {
		t.Fatalf("nil is not an invalid token error")
	}
	if isInvalidTokenError(errors.New("deadline exceeded")) {
		t.Fatalf("plain errors are not invalid token errors")
	}
}
