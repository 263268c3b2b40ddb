package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/syndrizzle/briq/internal/agreement/ledger"
	"github.com/syndrizzle/briq/internal/agreement/registryclient"
	"github.com/syndrizzle/briq/internal/agreement/store"
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
		Port:  8082,
		Peers: config.Peers{Registry: "http://localhost:8081"},
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

	led := ledger.New(st, registryclient.New(cfg.Peers.Registry), sink)
	m := metrics.New("agreement")

	r := newRouter(led, authn.Verifier{}, m, cfg)
	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("agreement ledger listening", "addr", addr, "registry", cfg.Peers.Registry)
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
				Admin  domain.Address `json:"admin"`
				Escrow domain.Address `json:"escrow"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			if err := led.Initialize(r.Context(), who, req.Admin, req.Escrow); err != nil {
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

		api.Post("/", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			var req struct {
				PropertyID domain.ID      `json:"property_id"`
				Tenant     domain.Address `json:"tenant"`
				StartDate  int64          `json:"start_date"`
				EndDate    int64          `json:"end_date"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
				return
			}
			a, err := led.Create(r.Context(), who, req.PropertyID, req.Tenant, req.StartDate, req.EndDate)
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "agreement": a})
		})

		api.Post("/{agreement_id}/tenant-sign", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			a, err := led.TenantSign(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "agreement": a})
		})

		api.Post("/{agreement_id}/landlord-sign", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			a, err := led.LandlordSign(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "agreement": a})
		})

		api.Post("/{agreement_id}/deposit-paid", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			if err := led.MarkDepositPaid(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id"))); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "deposit_paid": true})
		})

		api.Post("/{agreement_id}/rent-payments", func(w http.ResponseWriter, r *http.Request) {
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
			if err := led.RecordRentPayment(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")), req.Amount); err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "recorded": true})
		})

		api.Post("/{agreement_id}/complete", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			a, err := led.Complete(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "agreement": a})
		})

		api.Post("/{agreement_id}/cancel", func(w http.ResponseWriter, r *http.Request) {
			who, ok := caller(w, r)
			if !ok {
				return
			}
			a, err := led.Cancel(r.Context(), who, domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "agreement": a})
		})
	}

	r.Route("/agreements", func(api chi.Router) {
		api.Group(mutating)

		// Queries need no attestation.
		api.Get("/{agreement_id}", func(w http.ResponseWriter, r *http.Request) {
			a, err := led.Get(r.Context(), domain.ID(chi.URLParam(r, "agreement_id")))
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "agreement": a})
		})

		api.Get("/", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var (
				list []domain.Agreement
				err  error
			)
			switch {
			case q.Get("tenant") != "":
				list, err = led.ListByTenant(r.Context(), domain.Address(q.Get("tenant")))
			case q.Get("landlord") != "":
				list, err = led.ListByLandlord(r.Context(), domain.Address(q.Get("landlord")))
			case q.Get("property_id") != "":
				list, err = led.ListByProperty(r.Context(), domain.ID(q.Get("property_id")))
			default:
				list, err = led.Store.ListAll(r.Context())
			}
			if err != nil {
				writeLedgerError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "agreements": list})
		})
	})

	return r
}
