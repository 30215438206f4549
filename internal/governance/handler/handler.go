// Package handler exposes governance administration over HTTP: parameter
// updates, oracle promotion and clock control. Every mutation is gated on the
// governance authority.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"knomee/internal/audit"
	"knomee/internal/governance"
	"knomee/internal/identity"
	"knomee/internal/platform/middleware"
	"knomee/internal/transport/http/shared"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// OracleRegistry is the slice of the identity registry the handler needs.
type OracleRegistry interface {
	UpgradeToOracle(ctx context.Context, addr domain.Address) error
	Snapshot(ctx context.Context, addr domain.Address) (identity.Record, error)
}

// Handler handles governance endpoints.
type Handler struct {
	logger   *slog.Logger
	gov      *governance.Governance
	clock    *governance.Clock
	registry OracleRegistry
	auditor  *audit.Publisher
}

// New creates a governance Handler. The auditor may be nil.
func New(gov *governance.Governance, clock *governance.Clock, registry OracleRegistry, auditor *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		gov:      gov,
		clock:    clock,
		registry: registry,
		auditor:  auditor,
	}
}

// Register registers the governance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(gov chi.Router) {
		gov.Use(middleware.Recovery(h.logger))
		gov.Use(middleware.RequestID)
		gov.Use(middleware.Logger(h.logger))
		gov.Use(middleware.Timeout(10 * time.Second))
		gov.Use(middleware.ContentTypeJSON)
		gov.Get("/governance/params", h.handleGetParams)
		gov.Put("/governance/params", h.handleUpdateParams)
		gov.Post("/identities/{addr}/oracle", h.handleUpgradeOracle)
		gov.Get("/identities/{addr}", h.handleGetIdentity)
		gov.Post("/time/warp", h.handleWarp)
		gov.Post("/time/renounce", h.handleRenounce)
	})
}

// paramsBody is the wire form of the parameter set. Durations travel in
// seconds.
type paramsBody struct {
	LinkThreshold      uint16 `json:"link_threshold_bps"`
	PrimaryThreshold   uint16 `json:"primary_threshold_bps"`
	DuplicateThreshold uint16 `json:"duplicate_threshold_bps"`

	MinStake uint64 `json:"min_stake"`

	PrimaryStakeMultiplier   uint64 `json:"primary_stake_multiplier"`
	DuplicateStakeMultiplier uint64 `json:"duplicate_stake_multiplier"`

	LinkSlashBps      uint16 `json:"link_slash_bps"`
	PrimarySlashBps   uint16 `json:"primary_slash_bps"`
	DuplicateSlashBps uint16 `json:"duplicate_slash_bps"`
	SybilSlashBps     uint16 `json:"sybil_slash_bps"`

	PrimaryVoteWeight uint64 `json:"primary_vote_weight"`
	OracleVoteWeight  uint64 `json:"oracle_vote_weight"`

	FailedClaimCooldownSecs   int64 `json:"failed_claim_cooldown_secs"`
	DuplicateFlagCooldownSecs int64 `json:"duplicate_flag_cooldown_secs"`
	ClaimExpirySecs           int64 `json:"claim_expiry_secs"`
	EarlyAdopterPeriodSecs    int64 `json:"early_adopter_period_secs"`
}

func toParamsBody(p governance.Params) paramsBody {
	return paramsBody{
		LinkThreshold:             p.LinkThreshold,
		PrimaryThreshold:          p.PrimaryThreshold,
		DuplicateThreshold:        p.DuplicateThreshold,
		MinStake:                  p.MinStake,
		PrimaryStakeMultiplier:    p.PrimaryStakeMultiplier,
		DuplicateStakeMultiplier:  p.DuplicateStakeMultiplier,
		LinkSlashBps:              p.LinkSlashBps,
		PrimarySlashBps:           p.PrimarySlashBps,
		DuplicateSlashBps:         p.DuplicateSlashBps,
		SybilSlashBps:             p.SybilSlashBps,
		PrimaryVoteWeight:         p.PrimaryVoteWeight,
		OracleVoteWeight:          p.OracleVoteWeight,
		FailedClaimCooldownSecs:   int64(p.FailedClaimCooldown / time.Second),
		DuplicateFlagCooldownSecs: int64(p.DuplicateFlagCooldown / time.Second),
		ClaimExpirySecs:           int64(p.ClaimExpiryDuration / time.Second),
		EarlyAdopterPeriodSecs:    int64(p.EarlyAdopterPeriod / time.Second),
	}
}

func (b paramsBody) toParams() governance.Params {
	return governance.Params{
		LinkThreshold:            b.LinkThreshold,
		PrimaryThreshold:         b.PrimaryThreshold,
		DuplicateThreshold:       b.DuplicateThreshold,
		MinStake:                 b.MinStake,
		PrimaryStakeMultiplier:   b.PrimaryStakeMultiplier,
		DuplicateStakeMultiplier: b.DuplicateStakeMultiplier,
		LinkSlashBps:             b.LinkSlashBps,
		PrimarySlashBps:          b.PrimarySlashBps,
		DuplicateSlashBps:        b.DuplicateSlashBps,
		SybilSlashBps:            b.SybilSlashBps,
		PrimaryVoteWeight:        b.PrimaryVoteWeight,
		OracleVoteWeight:         b.OracleVoteWeight,
		FailedClaimCooldown:      time.Duration(b.FailedClaimCooldownSecs) * time.Second,
		DuplicateFlagCooldown:    time.Duration(b.DuplicateFlagCooldownSecs) * time.Second,
		ClaimExpiryDuration:      time.Duration(b.ClaimExpirySecs) * time.Second,
		EarlyAdopterPeriod:       time.Duration(b.EarlyAdopterPeriodSecs) * time.Second,
	}
}

type updateParamsRequest struct {
	Actor  string     `json:"actor"`
	Params paramsBody `json:"params"`
}

type actorRequest struct {
	Actor string `json:"actor"`
}

type warpRequest struct {
	Actor    string `json:"actor"`
	Duration string `json:"duration"`
}

type identityResponse struct {
	Address         string `json:"address"`
	Tier            string `json:"tier"`
	Primary         string `json:"primary,omitempty"`
	UnderChallenge  bool   `json:"under_challenge"`
	VouchesReceived uint64 `json:"vouches_received"`
	StakeReceived   uint64 `json:"stake_received"`
	LinkedCount     int    `json:"linked_count"`
}

func (h *Handler) handleGetParams(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, toParamsBody(h.gov.Snapshot()))
}

func (h *Handler) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	actor := domain.Address(req.Actor)
	if err := h.gov.Update(actor, req.Params.toParams()); err != nil {
		h.writeError(ctx, w, "update params", err)
		return
	}
	h.emit(ctx, audit.Event{Action: audit.ActionParamsUpdated, Actor: actor})
	shared.WriteJSON(w, http.StatusOK, toParamsBody(h.gov.Snapshot()))
}

func (h *Handler) handleUpgradeOracle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr := domain.Address(chi.URLParam(r, "addr"))
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	actor := domain.Address(req.Actor)
	if actor != h.gov.Authority() {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "only the governance authority may promote oracles"))
		return
	}
	if err := h.registry.UpgradeToOracle(ctx, addr); err != nil {
		h.writeError(ctx, w, "upgrade oracle", err)
		return
	}
	h.emit(ctx, audit.Event{Action: audit.ActionOracleUpgrade, Actor: actor, Subject: addr})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr := domain.Address(chi.URLParam(r, "addr"))
	rec, err := h.registry.Snapshot(ctx, addr)
	if err != nil {
		h.writeError(ctx, w, "get identity", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, identityResponse{
		Address:         addr.String(),
		Tier:            rec.Tier.String(),
		Primary:         rec.Primary.String(),
		UnderChallenge:  rec.UnderChallenge,
		VouchesReceived: rec.TotalVouchesReceived,
		StakeReceived:   rec.TotalStakeReceived,
		LinkedCount:     rec.LinkedCount,
	})
}

func (h *Handler) handleWarp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req warpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil || d < 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "duration must be a non-negative Go duration"))
		return
	}
	if err := h.clock.Warp(domain.Address(req.Actor), d); err != nil {
		h.writeError(ctx, w, "warp clock", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRenounce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := h.clock.Renounce(domain.Address(req.Actor)); err != nil {
		h.writeError(ctx, w, "renounce warp authority", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	requestID := middleware.GetRequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "request_id", requestID, "error", err.Error())
	} else {
		h.logger.WarnContext(ctx, op+" rejected", "request_id", requestID, "error", err.Error())
	}
	shared.WriteError(w, err)
}
