package handlers

import (
	"strconv"
	"time"

	"github.com/amirphl/drift-bottle/app/dto"
	businessflow "github.com/amirphl/drift-bottle/business_flow"
	"github.com/amirphl/drift-bottle/repository"
	"github.com/amirphl/drift-bottle/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"go.uber.org/zap"
)

// BottleHandlerInterface defines the contract for bottle handlers
type BottleHandlerInterface interface {
	Welcome(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Pick(c fiber.Ctx) error
	CountActive(c fiber.Ctx) error
}

// BottleHandler handles bottle-related HTTP requests
type BottleHandler struct {
	flow           businessflow.BottleFlow
	validator      *validator.Validate
	logger         *zap.Logger
	requestTimeout time.Duration
}

// NewBottleHandler creates a new bottle handler
func NewBottleHandler(flow businessflow.BottleFlow, logger *zap.Logger, requestTimeout time.Duration) *BottleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BottleHandler{
		flow:           flow,
		validator:      newValidator(),
		logger:         logger,
		requestTimeout: requestTimeout,
	}
}

// Welcome
// @Summary Welcome message
// @Description Liveness check returning a static welcome message
// @Tags System
// @Produce json
// @Success 200 {object} dto.WelcomeResponse
// @Router / [get]
func (h *BottleHandler) Welcome(c fiber.Ctx) error {
	return c.JSON(dto.WelcomeResponse{Message: utils.WelcomeMessage})
}

// Create Bottle
// @Summary Throw a bottle
// @Description Persist a new bottle with the next sequential id. It starts unpicked.
// @Tags Bottles
// @Accept json
// @Produce json
// @Param request body dto.CreateBottleRequest true "Bottle to throw"
// @Success 201 {object} dto.BottleResponse "Bottle created"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 500 {object} dto.APIResponse "Storage failure"
// @Router /bottles/ [post]
func (h *BottleHandler) Create(c fiber.Ctx) error {
	var req dto.CreateBottleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}
	if req.Images == nil {
		req.Images = []dto.ImageDTO{}
	}

	metadata := h.clientMetadata(c)
	ctx, cancel := createRequestContextWithTimeout(c, h.requestTimeout)
	defer cancel()

	result, err := h.flow.CreateBottle(ctx, &req, metadata)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to create bottle")
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// Pick Bottle
// @Summary Pick a random bottle
// @Description Claim one random unpicked bottle not thrown by sender_id. A bottle is handed out at most once.
// @Tags Bottles
// @Produce json
// @Param sender_id path string true "Requester id, its own bottles are excluded"
// @Success 200 {object} dto.BottleResponse "Bottle picked"
// @Failure 400 {object} dto.APIResponse "Malformed sender_id"
// @Failure 404 {object} dto.APIResponse "No bottles available"
// @Failure 503 {object} dto.APIResponse "Lost every race to concurrent pickers, retry"
// @Failure 500 {object} dto.APIResponse "Storage failure"
// @Router /bottles/pick/{sender_id} [post]
func (h *BottleHandler) Pick(c fiber.Ctx) error {
	senderID, err := PathParam(c, "sender_id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid sender_id", "INVALID_REQUEST", err.Error())
	}

	req := dto.PickBottleRequest{SenderID: senderID}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := h.clientMetadata(c)
	ctx, cancel := createRequestContextWithTimeout(c, h.requestTimeout)
	defer cancel()

	result, err := h.flow.PickBottle(ctx, &req, metadata)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to pick bottle")
	}

	return c.JSON(result)
}

// Count Active Bottles
// @Summary Count unpicked bottles
// @Description Point-in-time number of bottles that have not been picked yet
// @Tags Bottles
// @Produce json
// @Success 200 {object} dto.BottleCountResponse "Active bottle count"
// @Failure 500 {object} dto.APIResponse "Storage failure"
// @Router /bottles/counts/active [get]
func (h *BottleHandler) CountActive(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, h.requestTimeout)
	defer cancel()

	result, err := h.flow.CountActiveBottles(ctx)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to count active bottles")
	}

	return c.JSON(result)
}

func (h *BottleHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))
	return metadata
}

func (h *BottleHandler) handleFlowError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case businessflow.IsNoBottlesAvailable(err):
		return errorResponse(c, fiber.StatusNotFound, "No bottles available", "NO_BOTTLES_AVAILABLE", nil)
	case businessflow.IsClaimContention(err):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(utils.ClaimContentionRetryAfter))
		return errorResponse(c, fiber.StatusServiceUnavailable, "Too many concurrent picks, try again", "CLAIM_CONTENTION", nil)
	case businessflow.IsContentRequired(err),
		businessflow.IsSenderRequired(err),
		businessflow.IsSenderIDRequired(err),
		businessflow.IsPokeRequired(err),
		businessflow.IsInvalidImage(err):
		code := "VALIDATION_ERROR"
		if be, ok := err.(*businessflow.BusinessError); ok {
			code = be.Code
		}
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", code, err.Error())
	case repository.IsStorageUnavailable(err):
		return errorResponse(c, fiber.StatusInternalServerError, fallback, "STORAGE_UNAVAILABLE", nil)
	}

	if be, ok := err.(*businessflow.BusinessError); ok {
		return errorResponse(c, fiber.StatusInternalServerError, fallback, be.Code, nil)
	}

	h.logger.Error("unhandled flow error", zap.String("request_id", requestid.FromContext(c)), zap.Error(err))
	return errorResponse(c, fiber.StatusInternalServerError, fallback, "INTERNAL_ERROR", nil)
}
