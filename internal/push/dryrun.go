package push

import (
	"context"
	"fmt"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

// DryRunMessenger logs each multicast instead of sending it. Used when push
// delivery is disabled so the rest of the pipeline still runs.
type DryRunMessenger struct {
	logger *logging.Logger
}

func NewDryRunMessenger(logger *logging.Logger) *DryRunMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &DryRunMessenger{logger: logger.Named("push_dryrun")}
}

func (m *DryRunMessenger) SendMulticast(ctx context.Context, tokens []string, notification Notification) ([]TokenResult, error) {
	if len(tokens) > MaxBatchSize {
		return nil, fmt.Errorf("multicast of %d tokens exceeds %d", len(tokens), MaxBatchSize)
	}

	m.logger.InfoContext(ctx, "push skipped",
		"tokens", len(tokens),
		"title", notification.Title,
		"body", notification.Body,
	)

	results := make([]TokenResult, len(tokens))
	for i, token := range tokens {
		results[i] = TokenResult{Token: token, MessageID: "dry-run"}
	}
	return results, nil
}
