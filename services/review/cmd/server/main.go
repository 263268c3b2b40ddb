package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/syndrizzle/briq/internal/review/agreementclient"
	"github.com/syndrizzle/briq/internal/review/engine"
	"github.com/syndrizzle/briq/internal/review/rewardclient"
	"github.com/syndrizzle/briq/internal/review/store"
	"github.com/syndrizzle/briq/pkg/authn"
	"github.com/syndrizzle/briq/pkg/config"
	"github.com/syndrizzle/briq/pkg/db"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/events"
	"github.com/syndrizzle/briq/pkg/httpx"
	"github.com/syndrizzle/briq/pkg/logging"
	"github.com/syndrizzle/briq/pkg/metrics"
)

func main() {
	logging.Setup()
	cfg := config.Load(os.Getenv("CONFIG_PATH"), config.Service{
		Port: 8084,
		Peers: config.Peers{
			Agreement: "http://localhost:8082",
			Reward:    "http://localhost:8086",
		},
	})

	var st store.Store
	if os.Getenv("DATABASE_URL") != "" {
		pg := store.NewPostgres(db.MustConnect())
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		st = pg
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (dev mode)")
		st = store.NewMemory()
	}

	sink := events.Sink(events.LogSink{})
	if cfg.WebhookURL != "" {
		sink = events.Multi(sink, events.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret))
	}

	eng := engine.New(st, agreementclient.New(cfg.Peers.Agreement), sink)
	if cfg.Peers.Reward != "" {
		eng.Rewards = rewardclient.New(cfg.Peers.Reward, signingKey())
	}
	m := metrics.New("review")

	r := newRouter(eng, authn.Verifier{}, m, cfg)
	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("review engine listening", "addr", addr, "agreements", cfg.Peers.Agreement)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// signingKey loads the service key from REVIEW_KEY_SEED or generates an
// ephemeral one for dev runs.
func signingKey() ed25519.PrivateKey {
	if seed := os.Getenv("REVIEW_KEY_SEED"); seed != "" {
		key, err := authn.KeyFromSeedHex(seed)
		if err != nil {
			slog.Error("bad REVIEW_KEY_SEED", "error", err)
			os.Exit(1)
		}
		return key
	}
	slog.Warn("REVIEW_KEY_SEED not set, generating ephemeral service key (dev mode)")
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		slog.Error("keygen failed", "error", err)
		os.Exit(1)
	}
	return key
}

func newRouter(eng *engine.Engine, verifier authn.Verifier, m *metrics.Metrics, cfg config.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Method(http.MethodGet, "/metrics", m.Handler())

	caller := func(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
		addr, err := verifier.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			httpx.WriteError(w, 401, httpx.CodeUnauthorized, "invalid or missing attestation", nil)
			return "", false
		}
		return addr, true
	}

	mutating := func(api chi.Router) {
		api.Use(func(next http.Handler) http.Handler {
			return httpx.Throttle(cfg.RateLimitRPS, cfg.RateLimitBurst, next)
		})

		api.Post("/initialize", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			var req struct {
				Admin domain.Address `json:"admin"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := eng.Initialize(r.Context(), who, req.Admin); err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "initialized": true})
		})

		api.Post("/pause", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			if err := eng.Pause(r.Context(), who); err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "paused": true})
		})

		api.Post("/unpause", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			if err := eng.Unpause(r.Context(), who); err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "paused": false})
		})

		api.Post("/", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			var req struct {
				AgreementID domain.ID `json:"agreement_id"`
				Rating      int       `json:"rating"`
				ReviewText  string    `json:"review_text"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			review, err := eng.Submit(r.Context(), who, req.AgreementID, req.Rating, req.ReviewText)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "review": review})
		})
	}

	r.Route("/reviews", func(api chi.Router) {
		api.Group(mutating)

		// Queries need no attestation.
		api.Get("/eligibility", func(w http.ResponseWriter, r *http.Request) {
			reviewer := domain.Address(r.URL.Query().Get("reviewer"))
			agreementID := domain.ID(r.URL.Query().Get("agreement_id"))
			reason := ""
			if err := eng.CanSubmit(r.Context(), reviewer, agreementID); err != nil {
				reason = err.Error()
			}
			httpx.WriteJSON(w, 200, map[string]any{
				"request_id": httpx.NewRequestID(), "eligible": reason == "", "reason": reason,
			})
		})

		api.Get("/{review_id}", func(w http.ResponseWriter, r *http.Request) {
			review, err := eng.Get(r.Context(), domain.ID(chi.URLParam(r, "review_id")))
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "review": review})
		})

		api.Get("/", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var (
				list []domain.Review
				err  error
			)
			switch {
			case q.Get("agreement_id") != "":
				list, err = eng.ByAgreement(r.Context(), domain.ID(q.Get("agreement_id")))
			case q.Get("reviewer") != "":
				list, err = eng.ByReviewer(r.Context(), domain.Address(q.Get("reviewer")))
			default:
				httpx.WriteError(w, 400, httpx.CodeBadRequest, "agreement_id or reviewer query required", nil)
				return
			}
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "reviews": list})
		})
	})

	return r
}
