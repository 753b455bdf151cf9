package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rifadigital/raffle-api/internal/api/handler/v1/request"
	"github.com/rifadigital/raffle-api/internal/api/handler/v1/response"
	"github.com/rifadigital/raffle-api/internal/domain"
)

type UserService interface {
	FindUser(ctx context.Context, q domain.UserQuery) (*domain.User, error)
	UpsertUser(ctx context.Context, in domain.UserInput) (domain.User, error)
}

type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// HandleFindUser godoc
// @Summary      Find a user by identifier
// @Description  Looks a buyer up by phone, CPF or email. Returns a null user when nothing matches.
// @Tags         users
// @Produce      json
// @Param        phone  query     string  false  "Phone number"
// @Param        cpf    query     string  false  "CPF"
// @Param        email  query     string  false  "Email address"
// @Success      200    {object}  response.UserResponse
// @Failure      400    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /users/find [get]
func (h *UserHandler) HandleFindUser(ctx *gin.Context) {
	q := domain.UserQuery{
		Phone: ctx.Query("phone"),
		CPF:   ctx.Query("cpf"),
		Email: ctx.Query("email"),
	}
	if q.Empty() {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("at least one of phone, cpf or email is required")))
		return
	}

	user, err := h.svc.FindUser(ctx.Request.Context(), q)
	if err != nil {
		err = fmt.Errorf("v1.HandleFindUser -> h.svc.FindUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.UserResponse{User: user})
}

// HandleUpsertUser godoc
// @Summary      Create or update a user
// @Description  Upserts a buyer by any matching identifier; mutable fields take the new values
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input  body      request.UpsertUserRequest  true  "User details"
// @Success      200    {object}  domain.User
// @Failure      400    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /users/upsert [post]
func (h *UserHandler) HandleUpsertUser(ctx *gin.Context) {
	var input request.UpsertUserRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	user, err := h.svc.UpsertUser(ctx.Request.Context(), input.Input())
	if err != nil {
		err = fmt.Errorf("v1.HandleUpsertUser -> h.svc.UpsertUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, user)
}
