package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rifadigital/raffle-api/internal/api/handler/v1/response"
	"github.com/rifadigital/raffle-api/internal/domain"
)

type PurchaseService interface {
	ListByFilter(ctx context.Context, method, query string) ([]domain.Purchase, error)
	GroupedByUser(ctx context.Context) ([]domain.UserPurchases, error)
	ExportRows(ctx context.Context) ([][]string, error)
}

type PurchaseHandler struct {
	svc PurchaseService
}

func NewPurchaseHandler(svc PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		svc: svc,
	}
}

// HandleListPurchases godoc
// @Summary      List purchases by buyer identifier
// @Description  Returns every settled purchase whose buyer matches the given identifier
// @Tags         purchases
// @Produce      json
// @Param        method  query     string  true  "Identifier kind: phone, cpf or email"
// @Param        query   query     string  true  "Identifier value"
// @Success      200     {object}  response.PurchasesResponse
// @Failure      400     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /purchases [get]
func (h *PurchaseHandler) HandleListPurchases(ctx *gin.Context) {
	method := ctx.Query("method")
	query := ctx.Query("query")
	if method == "" || query == "" {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("method and query are required")))
		return
	}

	purchases, err := h.svc.ListByFilter(ctx.Request.Context(), method, query)
	if err != nil {
		err = fmt.Errorf("v1.HandleListPurchases -> h.svc.ListByFilter -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.PurchasesResponse{Purchases: purchases})
}
