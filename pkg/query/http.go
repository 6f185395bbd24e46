package query

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rentvault/escrow-indexer/internal/metrics"
	apphttp "github.com/rentvault/escrow-indexer/pkg/app/http"
)

// Handler serves the query API routes.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new query API handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes builds the query API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(countRequests)

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/deposits", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.listDeposits))
		r.Get("/depositor/{address}", apphttp.HandleError(h.depositsByDepositor))
		r.Get("/beneficiary/{address}", apphttp.HandleError(h.depositsByBeneficiary))
		r.Get("/{onChainId}", apphttp.HandleError(h.getDeposit))
	})

	r.Route("/disputes", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.listDisputes))
		r.Get("/{onChainId}", apphttp.HandleError(h.getDispute))
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/{address}", apphttp.HandleError(h.getUser))
		r.Get("/{address}/deposits", apphttp.HandleError(h.getUserDeposits))
	})

	return r
}

// countRequests records per-route request counts by status code.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.QueryRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listDeposits(w http.ResponseWriter, r *http.Request) error {
	deposits, err := h.service.ListDeposits(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deposits)
	return nil
}

func (h *Handler) depositsByDepositor(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	deposits, err := h.service.GetDepositsByDepositor(r.Context(), address)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deposits)
	return nil
}

func (h *Handler) depositsByBeneficiary(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	deposits, err := h.service.GetDepositsByBeneficiary(r.Context(), address)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deposits)
	return nil
}

func (h *Handler) getDeposit(w http.ResponseWriter, r *http.Request) error {
	onChainID := chi.URLParam(r, "onChainId")
	deposit, err := h.service.GetDeposit(r.Context(), onChainID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deposit)
	return nil
}

func (h *Handler) listDisputes(w http.ResponseWriter, r *http.Request) error {
	disputes, err := h.service.ListDisputes(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, disputes)
	return nil
}

// getDispute renders JSON null when the deposit exists but has no dispute.
func (h *Handler) getDispute(w http.ResponseWriter, r *http.Request) error {
	onChainID := chi.URLParam(r, "onChainId")
	dispute, err := h.service.GetDisputeForDeposit(r.Context(), onChainID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, dispute)
	return nil
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	user, err := h.service.GetUser(r.Context(), address)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, user)
	return nil
}

func (h *Handler) getUserDeposits(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	deposits, err := h.service.GetUserDeposits(r.Context(), address)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deposits)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
