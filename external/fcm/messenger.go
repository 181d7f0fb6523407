package fcm

import (
	"context"
	stderrors "errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	crerr "github.com/cockroachdb/errors"
	"google.golang.org/api/option"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/platform/resilience"
	"github.com/riskibarqy/rugby-live/internal/push"
)

var errFCMTransient = crerr.New("fcm transient failure")

// MulticastSender is the subset of *messaging.Client the messenger needs.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type MessengerConfig struct {
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Messenger sends push.Notification multicasts through Firebase Cloud Messaging.
type Messenger struct {
	sender         MulticastSender
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	isInvalidToken func(error) bool
}

// NewMessagingClient builds an FCM client from a service account file. An
// empty file falls back to application default credentials.
func NewMessagingClient(ctx context.Context, projectID, credentialsFile string) (*messaging.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, crerr.Wrap(err, "init firebase app")
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, crerr.Wrap(err, "init firebase messaging")
	}
	return client, nil
}

func NewMessenger(sender MulticastSender, cfg MessengerConfig) *Messenger {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Messenger{
		sender:         sender,
		logger:         logger.Named("fcm"),
		breaker:        resilience.NewCircuitBreaker("fcm", breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
		isInvalidToken: isInvalidTokenError,
	}
}

func (m *Messenger) SendMulticast(ctx context.Context, tokens []string, notification push.Notification) ([]push.TokenResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > push.MaxBatchSize {
		return nil, crerr.Newf("multicast accepts at most %d tokens, got %d", push.MaxBatchSize, len(tokens))
	}
	if m.circuitEnabled {
		if err := m.breaker.Allow(); err != nil {
			m.logger.WarnContext(ctx, "fcm circuit breaker rejected request", "state", m.breaker.State())
			return nil, crerr.Wrap(err, "fcm is temporarily unavailable")
		}
	}

	resp, err := m.sender.SendEachForMulticast(ctx, buildMessage(tokens, notification))
	if err != nil {
		callErr := fmt.Errorf("%w: send multicast: %v", errFCMTransient, err)
		m.recordCircuitResult(callErr)
		return nil, callErr
	}
	m.recordCircuitResult(nil)

	if resp == nil || len(resp.Responses) != len(tokens) {
		got := 0
		if resp != nil {
			got = len(resp.Responses)
		}
		return nil, crerr.Newf("fcm returned %d responses for %d tokens", got, len(tokens))
	}

	results := make([]push.TokenResult, len(tokens))
	for i, item := range resp.Responses {
		result := push.TokenResult{Token: tokens[i]}
		switch {
		case item == nil:
			result.Error = crerr.New("missing send response")
		case item.Success:
			result.MessageID = item.MessageID
		default:
			result.Error = item.Error
			if result.Error == nil {
				result.Error = crerr.New("send failed")
			}
			result.Invalid = m.isInvalidToken(item.Error)
		}
		results[i] = result
	}

	m.logger.DebugContext(ctx, "fcm multicast sent", "tokens", len(tokens), "success", resp.SuccessCount, "failure", resp.FailureCount)
	return results, nil
}

func buildMessage(tokens []string, notification push.Notification) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   notification.Data,
		Notification: &messaging.Notification{
			Title:    notification.Title,
			Body:     notification.Body,
			ImageURL: notification.ImageURL,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	}
}

func (m *Messenger) recordCircuitResult(err error) {
	if !m.circuitEnabled || m.breaker == nil {
		return
	}
	m.breaker.Record(isCircuitFailure(err))
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errFCMTransient)
}

// isInvalidTokenError reports per-token errors meaning the token will never work again.
func isInvalidTokenError(err error) bool {
	if err == nil {
		return false
	}
	return messaging.IsRegistrationTokenNotRegistered(err) ||
		messaging.IsUnregistered(err) ||
		messaging.IsInvalidArgument(err)
}
