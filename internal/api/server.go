package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	v1 "github.com/rifadigital/raffle-api/internal/api/handler/v1"
	"github.com/rifadigital/raffle-api/internal/api/middleware"
	"github.com/rifadigital/raffle-api/internal/config"
	"github.com/rifadigital/raffle-api/internal/repository"
	"github.com/rifadigital/raffle-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

// NewServer wires the handler stack on top of whichever store the app
// selected; everything below the handlers only sees repository.Store.
func NewServer(conf *config.AppConfig, store repository.Store) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	chargeSvc := service.NewChargeService(store)
	userSvc := service.NewUserService(store)
	raffleSvc := service.NewRaffleService(store)
	purchaseSvc := service.NewPurchaseService(store)

	chargeHandler := v1.NewChargeHandler(chargeSvc)
	userHandler := v1.NewUserHandler(userSvc)
	purchaseHandler := v1.NewPurchaseHandler(purchaseSvc)
	adminHandler := v1.NewAdminHandler(raffleSvc, purchaseSvc)

	s.MountHandlers(raffleSvc, chargeHandler, userHandler, purchaseHandler, adminHandler)

	return s
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	raffleSvc *service.RaffleService,
	chargeHandler *v1.ChargeHandler,
	userHandler *v1.UserHandler,
	purchaseHandler *v1.PurchaseHandler,
	adminHandler *v1.AdminHandler,
) {
	const basePath = "/api/v1"

	public := s.Router.Group(basePath)
	{
		public.GET("/health", v1.HandleHealthcheck)
		public.GET("/raffle/stats", adminHandler.HandleAdminStats)

		public.GET("/users/find", userHandler.HandleFindUser)
		public.POST("/users/upsert", userHandler.HandleUpsertUser)

		public.POST("/pix/charge", chargeHandler.HandleCreateCharge)
		public.GET("/pix/status/:chargeID", chargeHandler.HandleGetChargeStatus)
		public.POST("/pix/confirm/:chargeID", chargeHandler.HandleConfirmPayment)

		public.GET("/purchases", purchaseHandler.HandleListPurchases)
	}

	admin := s.Router.Group(basePath+"/admin", middleware.NewAllowlist(raffleSvc).RequireAdmin())
	{
		admin.GET("/purchases", adminHandler.HandleAdminPurchases)
		admin.GET("/stats", adminHandler.HandleAdminStats)
		admin.GET("/ticket-status", adminHandler.HandleAdminTicketStatus)
		admin.POST("/config", adminHandler.HandleAdminSetConfig)
		admin.GET("/export", adminHandler.HandleAdminExport)
	}

	s.Router.GET("/", v1.HandleHealthcheck)
}
