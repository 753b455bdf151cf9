package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rifadigital/raffle-api/internal/api/handler/v1/request"
	"github.com/rifadigital/raffle-api/internal/api/handler/v1/response"
	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/service"
)

type ChargeService interface {
	CreateCharge(ctx context.Context, in service.CreateChargeInput) (domain.Charge, error)
	GetStatus(ctx context.Context, id string) (domain.Charge, error)
	ConfirmPayment(ctx context.Context, id string) (domain.Purchase, error)
}

type ChargeHandler struct {
	svc ChargeService
}

func NewChargeHandler(svc ChargeService) *ChargeHandler {
	return &ChargeHandler{
		svc: svc,
	}
}

// HandleCreateCharge godoc
// @Summary      Create a payment charge
// @Description  Creates a pending charge for a ticket purchase and returns its payment payload
// @Tags         pix
// @Accept       json
// @Produce      json
// @Param        input  body      request.CreateChargeRequest  true  "Charge details"
// @Success      201    {object}  response.CreateChargeResponse
// @Failure      400    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /pix/charge [post]
func (h *ChargeHandler) HandleCreateCharge(ctx *gin.Context) {
	var input request.CreateChargeRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	charge, err := h.svc.CreateCharge(ctx.Request.Context(), service.CreateChargeInput{
		Amount:      input.Amount,
		Quantity:    input.Quantity,
		Description: input.Description,
		Buyer:       input.Buyer.Input(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuantityBelowMinimum),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrMissingPhone):
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		case errors.Is(err, service.ErrInsufficientTickets):
			response.RenderErr(ctx, response.ErrConflict(err))
			return
		}

		err = fmt.Errorf("v1.HandleCreateCharge -> h.svc.CreateCharge -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, response.NewCreateChargeResponse(charge))
}

// HandleGetChargeStatus godoc
// @Summary      Get charge status
// @Description  Returns the current status of a charge, expiring it first if overdue
// @Tags         pix
// @Produce      json
// @Param        chargeID  path      string  true  "Charge ID"
// @Success      200       {object}  response.ChargeStatusResponse
// @Failure      404       {object}  response.Err
// @Failure      500       {object}  response.Err
// @Router       /pix/status/{chargeID} [get]
func (h *ChargeHandler) HandleGetChargeStatus(ctx *gin.Context) {
	chargeID := ctx.Param("chargeID")

	charge, err := h.svc.GetStatus(ctx.Request.Context(), chargeID)
	if err != nil {
		if errors.Is(err, service.ErrChargeNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("charge", "ID", chargeID))
			return
		}

		err = fmt.Errorf("v1.HandleGetChargeStatus -> h.svc.GetStatus -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.ChargeStatusResponse{
		ID:     charge.ID,
		Status: charge.Status,
	})
}

// HandleConfirmPayment godoc
// @Summary      Confirm a charge payment
// @Description  Settles a pending charge, allocating its tickets. Idempotent per charge.
// @Tags         pix
// @Produce      json
// @Param        chargeID  path      string  true  "Charge ID"
// @Success      200       {object}  response.PurchaseResponse
// @Failure      404       {object}  response.Err
// @Failure      409       {object}  response.Err
// @Failure      500       {object}  response.Err
// @Router       /pix/confirm/{chargeID} [post]
func (h *ChargeHandler) HandleConfirmPayment(ctx *gin.Context) {
	chargeID := ctx.Param("chargeID")

	purchase, err := h.svc.ConfirmPayment(ctx.Request.Context(), chargeID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChargeNotFound):
			response.RenderErr(ctx, response.ErrNotFound("charge", "ID", chargeID))
			return
		case errors.Is(err, service.ErrChargeExpired),
			errors.Is(err, service.ErrInvalidChargeStatus),
			errors.Is(err, service.ErrSoldOut):
			response.RenderErr(ctx, response.ErrConflict(err))
			return
		}

		err = fmt.Errorf("v1.HandleConfirmPayment -> h.svc.ConfirmPayment -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.PurchaseResponse{Purchase: purchase})
}
