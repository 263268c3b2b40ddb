package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/syndrizzle/briq/internal/reward/agreementclient"
	"github.com/syndrizzle/briq/internal/reward/ledger"
	"github.com/syndrizzle/briq/internal/reward/store"
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
		Port:  8086,
		Peers: config.Peers{Agreement: "http://localhost:8082"},
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

	var agreements ledger.Agreements
	if cfg.Peers.Agreement != "" {
		agreements = agreementclient.New(cfg.Peers.Agreement)
	}
	led := ledger.New(st, agreements, sink)
	m := metrics.New("reward")

	r := newRouter(led, authn.Verifier{}, m, cfg)
	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("reward ledger listening", "addr", addr, "agreements", cfg.Peers.Agreement)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newRouter(led *ledger.Ledger, verifier authn.Verifier, m *metrics.Metrics, cfg config.Service) http.Handler {
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
			if err := led.Initialize(r.Context(), who, req.Admin); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "initialized": true})
		})

		api.Post("/pause", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			if err := led.Pause(r.Context(), who); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "paused": true})
		})

		api.Post("/unpause", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			if err := led.Unpause(r.Context(), who); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "paused": false})
		})

		api.Post("/config", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			var req domain.RewardConfig
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := led.SetRewardConfig(r.Context(), who, req); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "config": req})
		})

		api.Post("/transfer", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			var req struct {
				To     domain.Address `json:"to"`
				Amount int64          `json:"amount"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := led.Transfer(r.Context(), who, req.To, req.Amount); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "transferred": true})
		})

		api.Post("/mint", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			var req struct {
				To     domain.Address `json:"to"`
				Amount int64          `json:"amount"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := led.Mint(r.Context(), who, req.To, req.Amount); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "minted": true})
		})

		api.Post("/burn", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			var req struct {
				Amount int64 `json:"amount"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := led.Burn(r.Context(), who, req.Amount); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "burned": true})
		})

		api.Post("/first-payment", func(w http.ResponseWriter, r *http.Request) {
			if _, ok := caller(w, r); !ok {
				return
			}
			var req struct {
				AgreementID domain.ID      `json:"agreement_id"`
				Tenant      domain.Address `json:"tenant"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := led.RewardFirstPayment(r.Context(), req.AgreementID, req.Tenant); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "accepted": true})
		})

		api.Post("/review", func(w http.ResponseWriter, r *http.Request) {
			if _, ok := caller(w, r); !ok {
				return
			}
			var req struct {
				AgreementID domain.ID      `json:"agreement_id"`
				Reviewer    domain.Address `json:"reviewer"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := led.RewardReview(r.Context(), req.AgreementID, req.Reviewer); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "accepted": true})
		})

		api.Post("/mutual-review", func(w http.ResponseWriter, r *http.Request) {
			if _, ok := caller(w, r); !ok {
				return
			}
			var req struct {
				AgreementID domain.ID `json:"agreement_id"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := led.RewardMutualReview(r.Context(), req.AgreementID); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "accepted": true})
		})
	}

	r.Route("/rewards", func(api chi.Router) {
		api.Group(mutating)

		// Queries need no attestation.
		api.Get("/metadata", func(w http.ResponseWriter, r *http.Request) {
			meta, err := led.Metadata(r.Context())
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "metadata": meta})
		})

		api.Get("/config", func(w http.ResponseWriter, r *http.Request) {
			c, err := led.Config(r.Context())
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "config": c})
		})

		api.Get("/supply", func(w http.ResponseWriter, r *http.Request) {
			total, err := led.TotalSupply(r.Context())
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "total_supply": total})
		})

		api.Get("/balances/{address}", func(w http.ResponseWriter, r *http.Request) {
			bal, err := led.Balance(r.Context(), domain.Address(chi.URLParam(r, "address")))
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "balance": bal})
		})
	})

	return r
}
