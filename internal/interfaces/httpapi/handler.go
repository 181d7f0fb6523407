package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/riskibarqy/rugby-live/internal/domain/league"
	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/standing"
	"github.com/riskibarqy/rugby-live/internal/domain/team"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/push"
	"github.com/riskibarqy/rugby-live/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

// MatchQueries is satisfied by usecase.MatchService.
type MatchQueries interface {
	ListLeagues(ctx context.Context) ([]league.League, error)
	ListMatches(ctx context.Context, query usecase.MatchQuery) ([]match.Match, error)
	GetMatch(ctx context.Context, matchID int64) (match.Match, error)
	ListStandings(ctx context.Context, leagueID int64, season int) ([]standing.Standing, error)
	ListTeams(ctx context.Context, leagueID int64, season int) ([]team.Team, error)
}

// LiveControl is satisfied by usecase.LiveService.
type LiveControl interface {
	Watch(ctx context.Context, matchID int64) (bool, error)
	Unwatch(matchID int64) (bool, error)
	Active() []int64
	Matches() []match.Match
	Match(matchID int64) (match.Match, bool)
}

// Notifier is satisfied by usecase.NotificationService.
type Notifier interface {
	RegisterDeviceToken(ctx context.Context, userID, token string) error
	SendDirect(ctx context.Context, input usecase.DirectNotificationInput) (push.Report, error)
}

type HandlerConfig struct {
	Matches       MatchQueries
	Live          LiveControl
	Notifications Notifier
	InternalToken string
	Logger        *logging.Logger
}

type Handler struct {
	matches       MatchQueries
	live          LiveControl
	notifications Notifier
	internalToken string
	logger        *logging.Logger
	validator     *validator.Validate
	functions     map[string]function
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	h := &Handler{
		matches:       cfg.Matches,
		live:          cfg.Live,
		notifications: cfg.Notifications,
		internalToken: strings.TrimSpace(cfg.InternalToken),
		logger:        logger.Named("httpapi"),
		validator:     validator.New(validator.WithRequiredStructEnabled()),
	}
	h.functions = h.registerFunctions()
	return h
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, "status", "ok")
}

// Function dispatches POST /v1/functions/{name} to the named callable.
func (h *Handler) Function(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	ctx, span := startSpan(r.Context(), "httpapi.Handler."+name)
	defer span.End()

	fn, ok := h.functions[name]
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: unknown function %q", usecase.ErrNotFound, name))
		return
	}
	if fn.internal && !internalTokenValid(h.internalToken, r) {
		writeError(ctx, w, fmt.Errorf("%w: invalid internal token", usecase.ErrUnauthorized))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read body: %v", usecase.ErrInvalidInput, err))
		return
	}

	key, result, err := fn.call(ctx, body)
	if err != nil {
		if mapError(ctx, err).HTTPStatus >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "function failed", "function", name, "error", err)
		}
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, key, result)
}

func (h *Handler) LiveMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LiveMatches")
	defer span.End()

	writeSuccess(ctx, w, "matches", h.live.Matches())
}

// decodeRequest fills payload from body and validates it. An empty body
// decodes as {}.
func (h *Handler) decodeRequest(ctx context.Context, body []byte, payload any) error {
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := sonic.Unmarshal(body, payload); err != nil {
			return fmt.Errorf("%w: decode body: %v", usecase.ErrInvalidInput, err)
		}
	}
	return h.validateRequest(ctx, payload)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
