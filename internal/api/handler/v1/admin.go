package v1

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rifadigital/raffle-api/internal/api/handler/v1/request"
	"github.com/rifadigital/raffle-api/internal/api/handler/v1/response"
	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/service"
)

type RaffleService interface {
	GetStats(ctx context.Context) (domain.RaffleStats, error)
	SetTotalTickets(ctx context.Context, total int) (domain.RaffleStats, error)
	AvailabilitySample(ctx context.Context, limit int) (domain.AvailabilitySample, error)
}

// AdminHandler serves the operator views. Access control happens in
// the allowlist middleware, not here.
type AdminHandler struct {
	raffleSvc   RaffleService
	purchaseSvc PurchaseService
}

func NewAdminHandler(raffleSvc RaffleService, purchaseSvc PurchaseService) *AdminHandler {
	return &AdminHandler{
		raffleSvc:   raffleSvc,
		purchaseSvc: purchaseSvc,
	}
}

// HandleAdminPurchases godoc
// @Summary      List all purchases grouped by buyer
// @Description  Returns every purchase grouped under its buyer together with current raffle stats
// @Tags         admin
// @Produce      json
// @Param        cpf  query     string  true  "Administrator CPF"
// @Success      200  {object}  response.AdminPurchasesResponse
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/purchases [get]
func (h *AdminHandler) HandleAdminPurchases(ctx *gin.Context) {
	users, err := h.purchaseSvc.GroupedByUser(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleAdminPurchases -> h.purchaseSvc.GroupedByUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	stats, err := h.raffleSvc.GetStats(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleAdminPurchases -> h.raffleSvc.GetStats -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.AdminPurchasesResponse{
		Users: users,
		Stats: stats,
	})
}

// HandleAdminStats godoc
// @Summary      Get raffle statistics
// @Description  Returns pool totals, sold count and revenue
// @Tags         admin
// @Produce      json
// @Param        cpf  query     string  true  "Administrator CPF"
// @Success      200  {object}  domain.RaffleStats
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/stats [get]
func (h *AdminHandler) HandleAdminStats(ctx *gin.Context) {
	stats, err := h.raffleSvc.GetStats(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleAdminStats -> h.raffleSvc.GetStats -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

// HandleAdminTicketStatus godoc
// @Summary      Sample sold and available tickets
// @Description  Returns raffle stats plus bounded samples of sold and free ticket codes
// @Tags         admin
// @Produce      json
// @Param        cpf    query     string  true   "Administrator CPF"
// @Param        limit  query     int     false  "Sample size cap"
// @Success      200    {object}  domain.AvailabilitySample
// @Failure      403    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /admin/ticket-status [get]
func (h *AdminHandler) HandleAdminTicketStatus(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	sample, err := h.raffleSvc.AvailabilitySample(ctx.Request.Context(), limit)
	if err != nil {
		err = fmt.Errorf("v1.HandleAdminTicketStatus -> h.raffleSvc.AvailabilitySample -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, sample)
}

// HandleAdminSetConfig godoc
// @Summary      Update the ticket pool size
// @Description  Replaces the total ticket count; rejected when below the number already sold
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        cpf    query     string                    true  "Administrator CPF"
// @Param        input  body      request.SetConfigRequest  true  "New configuration"
// @Success      200    {object}  domain.RaffleStats
// @Failure      400    {object}  response.Err
// @Failure      403    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /admin/config [post]
func (h *AdminHandler) HandleAdminSetConfig(ctx *gin.Context) {
	var input request.SetConfigRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	stats, err := h.raffleSvc.SetTotalTickets(ctx.Request.Context(), input.TotalTickets)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTotalOutOfRange):
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		case errors.Is(err, service.ErrLowerThanSold):
			response.RenderErr(ctx, response.ErrConflict(err))
			return
		}

		err = fmt.Errorf("v1.HandleAdminSetConfig -> h.raffleSvc.SetTotalTickets -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

// HandleAdminExport godoc
// @Summary      Export all purchases as CSV
// @Description  Streams a semicolon-delimited CSV of every purchase, one ticket list per row
// @Tags         admin
// @Produce      text/csv
// @Param        cpf  query     string  true  "Administrator CPF"
// @Success      200  {string}  string  "CSV file"
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/export [get]
func (h *AdminHandler) HandleAdminExport(ctx *gin.Context) {
	rows, err := h.purchaseSvc.ExportRows(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleAdminExport -> h.purchaseSvc.ExportRows -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	filename := fmt.Sprintf("compras_%s.csv", time.Now().Format("2006-01-02"))
	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	// BOM so spreadsheet apps pick up UTF-8.
	if _, err := ctx.Writer.WriteString("\ufeff"); err != nil {
		return
	}

	w := csv.NewWriter(ctx.Writer)
	w.Comma = ';'
	if err := w.WriteAll(rows); err != nil {
		err = fmt.Errorf("v1.HandleAdminExport -> w.WriteAll -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}
}
