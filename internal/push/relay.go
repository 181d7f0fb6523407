package push

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

var (
	ErrInvalidNotification = errors.New("notification title and body are required")
	// ErrPayloadTooLarge is returned before any send; the platform would reject
	// the message as an invalid argument for every token.
	ErrPayloadTooLarge = errors.New("notification payload too large")
)

const (
	defaultWorkers = 4
	// MaxPayloadBytes is the platform limit on a message payload.
	MaxPayloadBytes = 4096
)

type RelayConfig struct {
	// BatchSize is capped at MaxBatchSize.
	BatchSize int
	Workers   int
	Logger    *logging.Logger
}

// Relay multicasts a notification to any number of tokens in platform-sized batches.
type Relay struct {
	messenger Messenger
	batchSize int
	workers   int
	logger    *logging.Logger
	now       func() time.Time
}

// Report summarizes one Send across all batches.
type Report struct {
	DispatchID    string        `json:"dispatchId"`
	Batches       int           `json:"batches"`
	SuccessCount  int           `json:"successCount"`
	FailureCount  int           `json:"failureCount"`
	Results       []TokenResult `json:"results"`
	InvalidTokens []string      `json:"invalidTokens,omitempty"`
}

func NewRelay(messenger Messenger, cfg RelayConfig) *Relay {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	return &Relay{
		messenger: messenger,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger.Named("push"),
		now:       time.Now,
	}
}

// Send delivers notification to tokens. Blank and duplicate tokens are
// skipped. A failed batch marks each of its tokens failed but not invalid; the
// error is returned only when every batch failed as a whole.
func (r *Relay) Send(ctx context.Context, tokens []string, notification Notification) (Report, error) {
	if strings.TrimSpace(notification.Title) == "" || strings.TrimSpace(notification.Body) == "" {
		return Report{}, ErrInvalidNotification
	}

	report := Report{DispatchID: uuid.NewString()}
	unique := uniqueTokens(tokens)
	if len(unique) == 0 {
		return report, nil
	}

	notification = notification.withData("timestamp", strconv.FormatInt(r.now().UnixMilli(), 10))
	if size := notification.payloadSize(); size > MaxPayloadBytes {
		return report, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, size, MaxPayloadBytes)
	}
	batches := Batches(unique, r.batchSize)
	report.Batches = len(batches)

	results := make([][]TokenResult, len(batches))
	batchErrs := make([]error, len(batches))

	pool, err := ants.NewPool(min(r.workers, len(batches)))
	if err != nil {
		return report, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for i, batch := range batches {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results[i], batchErrs[i] = r.sendBatch(ctx, batch, notification)
		}); err != nil {
			workers.Done()
			results[i], batchErrs[i] = failAll(batch, err), fmt.Errorf("submit batch to worker pool: %w", err)
		}
	}
	workers.Wait()

	failedBatches := 0
	for i := range batches {
		if batchErrs[i] != nil {
			failedBatches++
			r.logger.WarnContext(ctx, "push batch failed",
				"dispatch_id", report.DispatchID,
				"batch", i,
				"tokens", len(batches[i]),
				"error", batchErrs[i],
			)
		}
		for _, result := range results[i] {
			if result.Success() {
				report.SuccessCount++
			} else {
				report.FailureCount++
			}
			if result.Invalid {
				report.InvalidTokens = append(report.InvalidTokens, result.Token)
			}
			report.Results = append(report.Results, result)
		}
	}

	r.logger.InfoContext(ctx, "push dispatched",
		"dispatch_id", report.DispatchID,
		"batches", report.Batches,
		"success", report.SuccessCount,
		"failure", report.FailureCount,
		"invalid", len(report.InvalidTokens),
	)

	if failedBatches == len(batches) {
		return report, fmt.Errorf("all %d push batches failed: %w", failedBatches, errors.Join(batchErrs...))
	}
	return report, nil
}

func (r *Relay) sendBatch(ctx context.Context, batch []string, notification Notification) ([]TokenResult, error) {
	results, err := r.messenger.SendMulticast(ctx, batch, notification)
	if err != nil {
		return failAll(batch, err), err
	}

	// Fill in tokens the messenger did not report on.
	out := make([]TokenResult, len(batch))
	for i, token := range batch {
		if i < len(results) {
			out[i] = results[i]
			out[i].Token = token
			continue
		}
		out[i] = TokenResult{Token: token, Error: errors.New("no result reported for token")}
	}
	return out, nil
}

func failAll(batch []string, err error) []TokenResult {
	out := make([]TokenResult, len(batch))
	for i, token := range batch {
		out[i] = TokenResult{Token: token, Error: err}
	}
	return out
}

// Batches splits tokens into consecutive chunks of at most size.
func Batches(tokens []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	out := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		out = append(out, tokens[start:end:end])
	}
	return out
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}
