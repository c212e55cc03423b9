package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bufia/equipment-booking-backend/internal/auth"
	"github.com/bufia/equipment-booking-backend/internal/booking"
	bookingHttp "github.com/bufia/equipment-booking-backend/internal/booking/http"
	"github.com/bufia/equipment-booking-backend/internal/config"
	"github.com/bufia/equipment-booking-backend/internal/machine"
	machineHttp "github.com/bufia/equipment-booking-backend/internal/machine/http"
	"github.com/bufia/equipment-booking-backend/internal/maintenance"
	maintenanceHttp "github.com/bufia/equipment-booking-backend/internal/maintenance/http"
	"github.com/bufia/equipment-booking-backend/internal/notification"
	notificationHttp "github.com/bufia/equipment-booking-backend/internal/notification/http"
	"github.com/bufia/equipment-booking-backend/internal/payment"
	paymentHttp "github.com/bufia/equipment-booking-backend/internal/payment/http"
	"github.com/bufia/equipment-booking-backend/internal/user"
	userHttp "github.com/bufia/equipment-booking-backend/internal/user/http"
)

// NewRouter assembles middleware (CORS, Logger, Auth) and registers the
// routes for every module.
func NewRouter(
	cfg *config.Config,
	userService user.Service,
	machineService machine.Service,
	maintenanceService maintenance.Service,
	bookingService booking.Service,
	paymentService payment.Service,
	notificationService notification.Service,
	jwtManager *auth.JWTManager,
) *gin.Engine {

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestID(), gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := auth.AuthRequired(jwtManager)
	adminMiddleware := RequireAdmin()

	userHandler := userHttp.NewHandler(userService, jwtManager)
	machineHandler := machineHttp.NewHandler(machineService)
	maintenanceHandler := maintenanceHttp.NewHandler(maintenanceService)
	bookingHandler := bookingHttp.NewHandler(bookingService)
	paymentHandler := paymentHttp.NewHandler(paymentService)
	notificationHandler := notificationHttp.NewHandler(notificationService)

	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		machineHttp.RegisterRoutes(v1, machineHandler, authMiddleware, adminMiddleware)
		maintenanceHttp.RegisterRoutes(v1, maintenanceHandler, authMiddleware, adminMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, adminMiddleware)
		paymentHttp.RegisterRoutes(v1, paymentHandler, authMiddleware, adminMiddleware)
		notificationHttp.RegisterRoutes(v1, notificationHandler, authMiddleware)
	}

	return r
}
