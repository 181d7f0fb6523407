package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/rugby-live/internal/usecase"
)

func TestWriteSuccess_KeyedEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, "matches", []string{"a"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body["success"] != true {
		t.Fatalf("expected success=true, got %v", body["success"])
	}
	if _, ok := body["matches"]; !ok {
		t.Fatalf("expected matches key in success response")
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("did not expect error key in success response")
	}
}

func TestWriteError_MapsSentinels(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantReason string
	}{
		{err: fmt.Errorf("%w: bad payload", usecase.ErrInvalidInput), wantStatus: http.StatusBadRequest, wantReason: "invalidInput"},
		{err: fmt.Errorf("%w: match 1", usecase.ErrNotFound), wantStatus: http.StatusNotFound, wantReason: "notFound"},
		{err: usecase.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantReason: "unauthorized"},
		{err: fmt.Errorf("%w: rugby api", usecase.ErrDependencyUnavailable), wantStatus: http.StatusServiceUnavailable, wantReason: "dependencyUnavailable"},
		{err: errors.New("pq: connection refused"), wantStatus: http.StatusInternalServerError, wantReason: "internalError"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(context.Background(), rec, tt.err)

		if rec.Code != tt.wantStatus {
			t.Fatalf("%v: expected status %d, got %d", tt.err, tt.wantStatus, rec.Code)
		}
		var body errorResponse
		if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal response body: %v", err)
		}
		if body.Success || body.Reason != tt.wantReason {
			t.Fatalf("%v: unexpected body %+v", tt.err, body)
		}
		if tt.wantStatus == http.StatusInternalServerError && body.Error != internalErrorMessage {
			t.Fatalf("expected internal error message to be masked, got %q", body.Error)
		}
	}
}
