package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

type RouterConfig struct {
	Handler            *Handler
	Stream             *LiveStream
	Logger             *logging.Logger
	CORSAllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", cfg.Handler.Healthz).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/functions/{name}", cfg.Handler.Function).Methods(http.MethodPost)
	v1.HandleFunc("/live/matches", cfg.Handler.LiveMatches).Methods(http.MethodGet)
	if cfg.Stream != nil {
		v1.HandleFunc("/live/ws", cfg.Stream.Serve).Methods(http.MethodGet)
	}

	return RequestTracing(RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, router))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
