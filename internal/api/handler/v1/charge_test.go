package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifadigital/raffle-api/internal/domain"
	"github.com/rifadigital/raffle-api/internal/service"
)

type stubChargeService struct {
	createFn  func(ctx context.Context, in service.CreateChargeInput) (domain.Charge, error)
	statusFn  func(ctx context.Context, id string) (domain.Charge, error)
	confirmFn func(ctx context.Context, id string) (domain.Purchase, error)
}

func (s *stubChargeService) CreateCharge(ctx context.Context, in service.CreateChargeInput) (domain.Charge, error) {
	return s.createFn(ctx, in)
}

func (s *stubChargeService) GetStatus(ctx context.Context, id string) (domain.Charge, error) {
	return s.statusFn(ctx, id)
}

func (s *stubChargeService) ConfirmPayment(ctx context.Context, id string) (domain.Purchase, error) {
	return s.confirmFn(ctx, id)
}

func newChargeRouter(svc ChargeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := NewChargeHandler(svc)
	router.POST("/pix/charge", h.HandleCreateCharge)
	router.GET("/pix/status/:chargeID", h.HandleGetChargeStatus)
	router.POST("/pix/confirm/:chargeID", h.HandleConfirmPayment)

	return router
}

func TestHandleCreateCharge(t *testing.T) {
	svc := &stubChargeService{
		createFn: func(_ context.Context, in service.CreateChargeInput) (domain.Charge, error) {
			return domain.Charge{
				ID:            "charge-1",
				TransactionID: "tx123",
				Amount:        in.Amount,
				Quantity:      in.Quantity,
				Status:        domain.ChargePending,
				PixCode:       "payload",
				QRCodeImage:   "https://example.com/qr.png",
			}, nil
		},
	}
	router := newChargeRouter(svc)

	body := `{"amount":10,"quantity":5,"buyer":{"name":"Maria","phone":"11999990000"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pix/charge", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID               string  `json:"id"`
		PixCode          string  `json:"pixCode"`
		ExpiresInSeconds float64 `json:"expiresInSeconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "charge-1", resp.ID)
	assert.Equal(t, "payload", resp.PixCode)
	assert.Equal(t, domain.ChargeTTL.Seconds(), resp.ExpiresInSeconds)
}

func TestHandleCreateCharge_RejectsInvalidPayload(t *testing.T) {
	router := newChargeRouter(&stubChargeService{})

	tests := []struct {
		name string
		body string
	}{
		{"below minimum quantity", `{"amount":10,"quantity":2,"buyer":{"phone":"11999990000"}}`},
		{"missing phone", `{"amount":10,"quantity":5,"buyer":{"name":"Maria"}}`},
		{"repeated digit cpf", `{"amount":10,"quantity":5,"buyer":{"phone":"11999990000","cpf":"11111111111"}}`},
		{"malformed json", `{"amount":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/pix/charge", strings.NewReader(tt.body))
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleGetChargeStatus_NotFound(t *testing.T) {
	svc := &stubChargeService{
		statusFn: func(_ context.Context, _ string) (domain.Charge, error) {
			return domain.Charge{}, service.ErrChargeNotFound
		},
	}
	router := newChargeRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pix/status/charge-missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleConfirmPayment(t *testing.T) {
	now := time.Now()
	svc := &stubChargeService{
		confirmFn: func(_ context.Context, id string) (domain.Purchase, error) {
			return domain.Purchase{
				ID:        "purchase-1",
				ChargeID:  id,
				Status:    domain.ChargePaid,
				CreatedAt: now,
				Tickets:   []string{"00001", "00002", "00003", "00004", "00005"},
			}, nil
		},
	}
	router := newChargeRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pix/confirm/charge-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Purchase domain.Purchase `json:"purchase"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "purchase-1", resp.Purchase.ID)
	assert.Len(t, resp.Purchase.Tickets, 5)
}

func TestHandleConfirmPayment_Conflicts(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not found", service.ErrChargeNotFound, http.StatusNotFound},
		{"expired", service.ErrChargeExpired, http.StatusConflict},
		{"already paid out-of-band", service.ErrInvalidChargeStatus, http.StatusConflict},
		{"sold out", service.ErrSoldOut, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubChargeService{
				confirmFn: func(_ context.Context, _ string) (domain.Purchase, error) {
					return domain.Purchase{}, tt.err
				},
			}
			router := newChargeRouter(svc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/pix/confirm/charge-1", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
