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

	"github.com/syndrizzle/briq/internal/escrow/agreementclient"
	"github.com/syndrizzle/briq/internal/escrow/assetclient"
	"github.com/syndrizzle/briq/internal/escrow/engine"
	"github.com/syndrizzle/briq/internal/escrow/rewardclient"
	"github.com/syndrizzle/briq/internal/escrow/store"
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
		Port: 8083,
		Peers: config.Peers{
			Agreement: "http://localhost:8082",
			Asset:     "http://localhost:8085",
			Reward:    "http://localhost:8086",
		},
	})

	key := signingKey()
	custody := domain.AddressFromPublicKey(key.Public().(ed25519.PublicKey))

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

	eng := engine.New(st,
		agreementclient.New(cfg.Peers.Agreement, key),
		assetclient.New(cfg.Peers.Asset, key),
		custody, sink)
	if cfg.Peers.Reward != "" {
		eng.Rewards = rewardclient.New(cfg.Peers.Reward, key)
	}
	m := metrics.New("escrow")

	r := newRouter(eng, authn.Verifier{}, m, cfg)
	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("escrow engine listening", "addr", addr, "custody", custody)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// signingKey loads the custody key from ESCROW_KEY_SEED or generates an
// ephemeral one for dev runs.
func signingKey() ed25519.PrivateKey {
	if seed := os.Getenv("ESCROW_KEY_SEED"); seed != "" {
		key, err := authn.KeyFromSeedHex(seed)
		if err != nil {
			slog.Error("bad ESCROW_KEY_SEED", "error", err)
			os.Exit(1)
		}
		return key
	}
	slog.Warn("ESCROW_KEY_SEED not set, generating ephemeral custody key (dev mode)")
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
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "initialized": true, "custody": eng.Custody})
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

		api.Post("/{agreement_id}/fund", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			acct, err := eng.Fund(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "escrow": acct})
		})

		api.Post("/{agreement_id}/rent", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			acct, err := eng.PayRent(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "escrow": acct})
		})

		api.Post("/{agreement_id}/release-deposit", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			acct, err := eng.ReleaseDeposit(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "escrow": acct})
		})

		api.Post("/{agreement_id}/emergency-withdraw", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			var req struct {
				To domain.Address `json:"to"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := eng.EmergencyWithdraw(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")), req.To); err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "withdrawn": true})
		})
	}

	r.Route("/escrow", func(api chi.Router) {
		api.Group(mutating)

		// Queries need no attestation.
		api.Get("/{agreement_id}", func(w http.ResponseWriter, r *http.Request) {
			acct, err := eng.GetEscrow(r.Context(), domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "escrow": acct})
		})

		api.Get("/{agreement_id}/payments", func(w http.ResponseWriter, r *http.Request) {
			log, err := eng.PaymentHistory(r.Context(), domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "payments": log})
		})
	})

	return r
}
