package handlers

import (
	"net/http"
	"time"

	"github.com/dcablorh/suidrop/internal/models"
	"github.com/dcablorh/suidrop/internal/services"
	"github.com/dcablorh/suidrop/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DropletHandler handles droplet-related HTTP requests
type DropletHandler struct {
	droplets services.DropletServiceInterface
	history  services.HistoryServiceInterface
	stats    services.StatsServiceInterface
	resolver *services.Resolver
	builder  *services.CallBuilder
}

// NewDropletHandler creates a new DropletHandler instance
func NewDropletHandler(
	droplets services.DropletServiceInterface,
	history services.HistoryServiceInterface,
	stats services.StatsServiceInterface,
	resolver *services.Resolver,
	builder *services.CallBuilder,
) *DropletHandler {
	return &DropletHandler{
		droplets: droplets,
		history:  history,
		stats:    stats,
		resolver: resolver,
		builder:  builder,
	}
}

// GetDroplet handles GET /api/droplet/:id requests. The id accepts a
// bare identifier or a full share link; an optional viewer query adds
// the has-claimed flag for that account.
func (h *DropletHandler) GetDroplet(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	identifier := models.NormalizeIdentifier(c.Param("id"))
	if fieldErr := models.ValidateIdentifier(identifier); fieldErr != nil {
		models.HandleError(c, models.NewValidationError(fieldErr.Field, fieldErr.Reason), log)
		return
	}

	view, err := h.droplets.Load(c.Request.Context(), identifier, c.Query("viewer"))
	if err != nil {
		models.HandleError(c, err, log)
		return
	}

	log.Debug("Serving droplet view", zap.String("droplet_id", identifier))
	c.JSON(http.StatusOK, view)
}

// GetHistory handles GET /api/history/:address requests with an
// optional filter query (all, active, expired, completed).
func (h *DropletHandler) GetHistory(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	mode, ok := models.ParseFilterMode(c.Query("filter"))
	if !ok {
		models.HandleError(c, models.NewValidationError("filter",
			"Filter must be one of all, active, expired, completed"), log)
		return
	}

	history, err := h.history.History(c.Request.Context(), c.Param("address"))
	if err != nil {
		models.HandleError(c, err, log)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filter":  mode,
		"created": services.Filter(history.Created, mode),
		"claimed": services.Filter(history.Claimed, mode),
	})
}

// GetStats handles GET /api/stats requests
func (h *DropletHandler) GetStats(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		models.HandleError(c, err, log)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// BuildCreate handles POST /api/droplet/build-create requests. The
// response carries the assembled call for the wallet to sign plus a
// display-only fee estimate.
func (h *DropletHandler) BuildCreate(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req models.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := models.NewAppErrorWithDetails(models.ErrorCodeMalformedJSON, "Invalid JSON format", err.Error())
		models.HandleError(c, appErr, log)
		return
	}

	if errs := models.ValidateCreate(&req); len(errs) > 0 {
		respondFieldErrors(c, errs)
		return
	}

	resp, err := h.builder.BuildCreate(&req, h.stats.FeeBasisPoints())
	if err != nil {
		models.HandleError(c, err, log)
		return
	}

	log.Info("Built create call",
		zap.String("amount", req.Amount),
		zap.Int64("receiver_limit", req.ReceiverLimit),
	)
	c.JSON(http.StatusOK, resp)
}

// BuildClaim handles POST /api/droplet/build-claim requests: validates
// the form, resolves the identifier, and assembles the claim call.
func (h *DropletHandler) BuildClaim(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := models.NewAppErrorWithDetails(models.ErrorCodeMalformedJSON, "Invalid JSON format", err.Error())
		models.HandleError(c, appErr, log)
		return
	}

	req.DropletID = models.NormalizeIdentifier(req.DropletID)
	if errs := models.ValidateClaim(&req); len(errs) > 0 {
		respondFieldErrors(c, errs)
		return
	}

	address, err := h.resolver.Resolve(c.Request.Context(), req.DropletID)
	if err != nil {
		models.HandleError(c, err, log)
		return
	}

	log.Info("Built claim call", zap.String("droplet_id", req.DropletID))
	c.JSON(http.StatusOK, models.BuildClaimResponse{
		DropletAddress: address,
		Call:           h.builder.BuildClaim(address, req.DropletID, req.ClaimerName),
	})
}

// CreatedRequest carries the events of an executed create transaction
// back from the wallet, plus the origin used to synthesize share links.
type CreatedRequest struct {
	Events []models.LedgerEvent `json:"events"`
	Origin string               `json:"origin,omitempty"`
}

// ParseCreated handles POST /api/droplet/created requests: extracts the
// new identifier from the creation event and returns its share link.
func (h *DropletHandler) ParseCreated(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req CreatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := models.NewAppErrorWithDetails(models.ErrorCodeMalformedJSON, "Invalid JSON format", err.Error())
		models.HandleError(c, appErr, log)
		return
	}

	identifier := services.CreatedIdentifierFromEvents(req.Events)
	if identifier == "" {
		models.HandleError(c, models.NewAppErrorWithDetails(models.ErrorCodeNotFound,
			"No creation event found", "transaction events carry no new identifier"), log)
		return
	}

	resp := gin.H{"droplet_id": identifier}
	if req.Origin != "" {
		resp["claim_link"] = services.ShareLink(req.Origin, identifier)
	}
	c.JSON(http.StatusOK, resp)
}

// RejectionRequest is a raw program abort message from a failed
// mutating call.
type RejectionRequest struct {
	Message string `json:"message"`
}

// TranslateRejection handles POST /api/droplet/rejection requests:
// maps program abort markers to stable user-facing reasons.
func (h *DropletHandler) TranslateRejection(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req RejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := models.NewAppErrorWithDetails(models.ErrorCodeMalformedJSON, "Invalid JSON format", err.Error())
		models.HandleError(c, appErr, log)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reason": models.TranslateLedgerRejection(req.Message),
	})
}

// respondFieldErrors reports every failed form predicate at once.
func respondFieldErrors(c *gin.Context, errs []models.FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":    models.ErrorCodeValidationFailed,
			"message": "Validation failed",
			"fields":  errs,
		},
		"timestamp": time.Now().UTC(),
	})
}
