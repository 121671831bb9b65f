package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/prepdeck/prepdeck-backend/internal/middleware"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/prepdeck/prepdeck-backend/internal/service"
	"github.com/prepdeck/prepdeck-backend/internal/validator"
	"github.com/rs/zerolog"
)

// BillingHandler handles plan listing and Razorpay checkout endpoints.
type BillingHandler struct {
	billingService *service.BillingService
	log            zerolog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingService *service.BillingService, log zerolog.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		log:            log.With().Str("component", "billing_handler").Logger(),
	}
}

// Plans godoc
// GET /api/v1/student/billing/plans
func (h *BillingHandler) Plans(c *gin.Context) {
	plans, err := h.billingService.Plans(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, plans)
}

// CreateOrder godoc
// POST /api/v1/student/billing/orders
func (h *BillingHandler) CreateOrder(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateOrderRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	order, err := h.billingService.CreateOrder(c.Request.Context(), claims.UserID, req.PlanCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBillingDisabled):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrOrderFailed)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrPlanUnknown)
		default:
			h.log.Error().Err(err).Int("student_id", claims.UserID).Msg("Order creation failed")
			response.Fail(c, http.StatusBadGateway, response.ErrOrderFailed)
		}
		return
	}
	response.Success(c, http.StatusCreated, order)
}

// VerifyPayment godoc
// POST /api/v1/student/billing/verify
func (h *BillingHandler) VerifyPayment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.VerifyPaymentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.billingService.VerifyPayment(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBillingDisabled):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrOrderFailed)
		case errors.Is(err, service.ErrOrderNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrOrderNotYours):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		case errors.Is(err, service.ErrBadSignature):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrPaymentSignature)
		default:
			h.log.Error().Err(err).Int("student_id", claims.UserID).Msg("Payment verification failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, student)
}
