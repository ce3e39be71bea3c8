package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/application/analysis"
	"github.com/bimakw/nft-hold-analyzer/internal/application/services"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

// SummaryHandler handles HTTP requests for wallet NFT summaries
type SummaryHandler struct {
	service *services.SummaryService
	logger  *zap.Logger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(service *services.SummaryService, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the summary routes on a chi router
func (h *SummaryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/wallets", func(r chi.Router) {
		r.Get("/{address}/nft-summary", h.GetWalletSummary)
		r.Get("/{address}/holdings", h.GetHoldings)
		r.Get("/{address}/transfers", h.GetTransfers)
	})
	r.Get("/report", h.GetReport)
}

// GetWalletSummary handles GET /api/v1/wallets/{address}/nft-summary
func (h *SummaryHandler) GetWalletSummary(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	if !isValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid wallet address format")
		return
	}

	address = strings.ToLower(address)

	response, err := h.service.GetWalletSummary(r.Context(), address)
	if err != nil {
		h.logger.Error("Failed to get wallet summary",
			zap.Error(err),
			zap.String("address", address),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to get wallet summary")
		return
	}

	if response == nil {
		h.respondError(w, http.StatusNotFound, "Wallet not found")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// GetHoldings handles GET /api/v1/wallets/{address}/holdings
func (h *SummaryHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	if !isValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid wallet address format")
		return
	}

	address = strings.ToLower(address)

	response, err := h.service.GetHoldings(r.Context(), address)
	if err != nil {
		if errors.Is(err, analysis.ErrMalformedTransfer) || errors.Is(err, analysis.ErrFetchFailed) {
			h.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("Failed to get holdings",
			zap.Error(err),
			zap.String("address", address),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to get holdings")
		return
	}

	if response == nil {
		h.respondError(w, http.StatusNotFound, "Wallet not found")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// GetTransfers handles GET /api/v1/wallets/{address}/transfers
func (h *SummaryHandler) GetTransfers(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	if !isValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid wallet address format")
		return
	}

	filter := entities.DefaultTransferFilter(strings.ToLower(address))
	filter.Limit = 100

	query := r.URL.Query()
	if v := query.Get("token"); v != "" {
		token := strings.ToLower(v)
		filter.TokenAddress = &token
	}
	if v := query.Get("from_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.FromTime = &t
		}
	}
	if v := query.Get("to_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.ToTime = &t
		}
	}
	if v := query.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 1000 {
			filter.Limit = limit
		}
	}
	if v := query.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	response, err := h.service.GetTransfers(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to get transfers",
			zap.Error(err),
			zap.String("address", address),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to get transfers")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// GetReport handles GET /api/v1/report
func (h *SummaryHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetReport(r.Context())
	if err != nil {
		h.logger.Error("Failed to render report", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="nft_holdings.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

func (h *SummaryHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *SummaryHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func isValidAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}
