package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/rifadigital/raffle-api/internal/api/handler/v1/response"
)

type AdminChecker interface {
	IsAdmin(ctx context.Context, cpf string) (bool, error)
}

// Allowlist gates admin routes on the CPF allowlist kept in storage.
// The identity itself is whatever CPF the caller presents; this is a
// boolean predicate, not an authentication scheme.
type Allowlist struct {
	svc AdminChecker
}

func NewAllowlist(svc AdminChecker) *Allowlist {
	return &Allowlist{
		svc: svc,
	}
}

func (a *Allowlist) RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		cpf := ctx.Query("cpf")
		if cpf == "" {
			response.RenderErr(ctx, response.ErrPermissionDenied(errors.New("cpf is required")))

			return
		}

		admin, err := a.svc.IsAdmin(ctx.Request.Context(), cpf)
		if err != nil {
			err = fmt.Errorf("middleware.RequireAdmin -> a.svc.IsAdmin -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))

			return
		}
		if !admin {
			response.RenderErr(ctx, response.ErrPermissionDenied(errors.New("cpf is not an administrator")))

			return
		}

		ctx.Next()
	}
}
