package app

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/rugby-live/internal/config"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/push"
)

func TestBuildLiveSource_Disabled(t *testing.T) {
	live, err := buildLiveSource(config.Config{LiveSource: config.LiveSourceNone}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("build live source: %v", err)
	}
	if live.run != nil || live.close != nil {
		t.Fatalf("disabled source should have no background loop")
	}
	if _, err := live.source.Subscribe(context.Background(), 1); !errors.Is(err, errLiveSourceDisabled) {
		t.Fatalf("expected errLiveSourceDisabled, got %v", err)
	}
}

func TestBuildLiveSource_PostgresNeedsDB(t *testing.T) {
	if _, err := buildLiveSource(config.Config{LiveSource: config.LiveSourcePostgres}, nil, logging.NewNop()); err == nil {
		t.Fatalf("expected error without database")
	}
}

func TestBuildMessenger_DryRunWhenPushDisabled(t *testing.T) {
	messenger, err := buildMessenger(context.Background(), config.Config{PushEnabled: false}, logging.NewNop())
	if err != nil {
		t.Fatalf("build messenger: %v", err)
	}
	results, err := messenger.SendMulticast(context.Background(), []string{"tok"}, pushNotification())
	if err != nil || len(results) != 1 || !results[0].Success() {
		t.Fatalf("unexpected dry run result: %+v err=%v", results, err)
	}
}

func pushNotification() push.Notification {
	return push.Notification{Title: "Coup d'envoi", Body: "Toulouse - Racing"}
}
