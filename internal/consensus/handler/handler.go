// Package handler exposes the consensus engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"knomee/internal/consensus/models"
	"knomee/internal/platform/middleware"
	"knomee/internal/transport/http/shared"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// Service defines the consensus operations the handler needs.
type Service interface {
	CreateLinkClaim(ctx context.Context, subject, primary domain.Address, platform, justification string, stake uint64) (domain.ClaimID, error)
	CreatePrimaryClaim(ctx context.Context, subject domain.Address, justification string, stake uint64) (domain.ClaimID, error)
	CreateDuplicateFlag(ctx context.Context, challenger, addr1, addr2 domain.Address, evidence string, stake uint64) (domain.ClaimID, error)
	Vouch(ctx context.Context, claimID domain.ClaimID, voucher domain.Address, supporting bool, stake uint64) error
	ResolveExpired(ctx context.Context, claimID domain.ClaimID) (bool, error)
	Settle(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (uint64, error)
	GetClaim(ctx context.Context, claimID domain.ClaimID) (*models.Claim, error)
	GetVouches(ctx context.Context, claimID domain.ClaimID) ([]*models.Vouch, error)
	CurrentConsensus(ctx context.Context, claimID domain.ClaimID) (uint16, uint16, error)
	CanVouch(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (bool, string, error)
	ClaimsBy(ctx context.Context, addr domain.Address) ([]domain.ClaimID, error)
}

// Handler handles claim and vouch endpoints.
type Handler struct {
	logger    *slog.Logger
	consensus Service
}

// New creates a consensus Handler.
func New(consensus Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, consensus: consensus}
}

// Register registers the claim routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(claims chi.Router) {
		claims.Use(middleware.Recovery(h.logger))
		claims.Use(middleware.RequestID)
		claims.Use(middleware.Logger(h.logger))
		claims.Use(middleware.Timeout(30 * time.Second))
		claims.Use(middleware.ContentTypeJSON)
		claims.Post("/claims/link", h.handleCreateLink)
		claims.Post("/claims/primary", h.handleCreatePrimary)
		claims.Post("/claims/duplicate", h.handleCreateDuplicate)
		claims.Post("/claims/{id}/vouch", h.handleVouch)
		claims.Post("/claims/{id}/expire", h.handleExpire)
		claims.Post("/claims/{id}/settle", h.handleSettle)
		claims.Get("/claims/{id}", h.handleGetClaim)
		claims.Get("/claims/{id}/vouches", h.handleGetVouches)
		claims.Get("/claims/{id}/consensus", h.handleGetConsensus)
		claims.Get("/claims/{id}/eligibility", h.handleGetEligibility)
		claims.Get("/addresses/{addr}/claims", h.handleClaimsBy)
	})
}

func (h *Handler) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	id, err := h.consensus.CreateLinkClaim(ctx,
		domain.Address(req.Subject), domain.Address(req.Primary),
		req.Platform, req.Justification, req.Stake)
	if err != nil {
		h.writeServiceError(ctx, w, "create link claim", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, createdResponse{ClaimID: id})
}

func (h *Handler) handleCreatePrimary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createPrimaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	id, err := h.consensus.CreatePrimaryClaim(ctx, domain.Address(req.Subject), req.Justification, req.Stake)
	if err != nil {
		h.writeServiceError(ctx, w, "create primary claim", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, createdResponse{ClaimID: id})
}

func (h *Handler) handleCreateDuplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createDuplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	id, err := h.consensus.CreateDuplicateFlag(ctx,
		domain.Address(req.Challenger), domain.Address(req.Address1), domain.Address(req.Address2),
		req.Evidence, req.Stake)
	if err != nil {
		h.writeServiceError(ctx, w, "create duplicate flag", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, createdResponse{ClaimID: id})
}

func (h *Handler) handleVouch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req vouchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := h.consensus.Vouch(ctx, id, domain.Address(req.Voucher), req.Supporting, req.Stake); err != nil {
		h.writeServiceError(ctx, w, "vouch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExpire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	if _, err := h.consensus.ResolveExpired(ctx, id); err != nil {
		h.writeServiceError(ctx, w, "expire claim", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, expireResponse{Expired: true})
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	amount, err := h.consensus.Settle(ctx, id, domain.Address(req.Voucher))
	if err != nil {
		h.writeServiceError(ctx, w, "settle", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, settleResponse{Amount: amount})
}

func (h *Handler) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	c, err := h.consensus.GetClaim(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "get claim", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toClaimResponse(c))
}

func (h *Handler) handleGetVouches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	vs, err := h.consensus.GetVouches(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "get vouches", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toVouchResponses(vs))
}

func (h *Handler) handleGetConsensus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	forBps, againstBps, err := h.consensus.CurrentConsensus(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "get consensus", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, consensusResponse{ForBps: forBps, AgainstBps: againstBps})
}

func (h *Handler) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	voucher := r.URL.Query().Get("voucher")
	if voucher == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "voucher query parameter is required"))
		return
	}
	eligible, reason, err := h.consensus.CanVouch(ctx, id, domain.Address(voucher))
	if err != nil {
		h.writeServiceError(ctx, w, "check eligibility", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, eligibilityResponse{Eligible: eligible, Reason: reason})
}

func (h *Handler) handleClaimsBy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr := chi.URLParam(r, "addr")
	if addr == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "address is required"))
		return
	}
	ids, err := h.consensus.ClaimsBy(ctx, domain.Address(addr))
	if err != nil {
		h.writeServiceError(ctx, w, "list claims", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claimsResponse{ClaimIDs: ids})
}

// claimID parses the {id} route parameter, writing the error response itself.
func (h *Handler) claimID(w http.ResponseWriter, r *http.Request) (domain.ClaimID, bool) {
	id, err := domain.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid claim id"))
		return 0, false
	}
	return id, true
}

// writeServiceError logs unexpected failures and maps every error onto the
// wire. Client-caused errors log at warn to keep the error log actionable.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	requestID := middleware.GetRequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "request_id", requestID, "error", err.Error())
	} else {
		h.logger.WarnContext(ctx, op+" rejected", "request_id", requestID, "error", err.Error())
	}
	shared.WriteError(w, err)
}
