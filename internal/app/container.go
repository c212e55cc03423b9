package app

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bufia/equipment-booking-backend/internal/api"
	"github.com/bufia/equipment-booking-backend/internal/auth"
	"github.com/bufia/equipment-booking-backend/internal/booking"
	"github.com/bufia/equipment-booking-backend/internal/config"
	"github.com/bufia/equipment-booking-backend/internal/jobs"
	"github.com/bufia/equipment-booking-backend/internal/machine"
	"github.com/bufia/equipment-booking-backend/internal/maintenance"
	"github.com/bufia/equipment-booking-backend/internal/notification"
	"github.com/bufia/equipment-booking-backend/internal/payment"
	"github.com/bufia/equipment-booking-backend/internal/scheduler"
	"github.com/bufia/equipment-booking-backend/internal/user"
)

// Container holds the initialized components needed by main.
type Container struct {
	Router    *gin.Engine
	Scheduler *scheduler.Scheduler
	Redis     *redis.Client
}

// NewContainer initializes all modules and wires them together.
func NewContainer(cfg *config.Config, pool *pgxpool.Pool) (*Container, error) {
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTokenTTL)

	// User module
	userRepo := user.NewPgxRepository(pool)
	userService := user.NewService(userRepo, passwordHasher)

	// Machine module
	machineRepo := machine.NewPgxRepository(pool)
	machineService := machine.NewService(machineRepo)

	// Maintenance module
	maintenanceRepo := maintenance.NewPgxRepository(pool)
	maintenanceService := maintenance.NewService(maintenanceRepo, machineRepo)

	// Notification module; its sink consumes booking lifecycle events.
	notificationRepo := notification.NewPgxRepository(pool)
	notificationService := notification.NewService(notificationRepo)
	eventSink := notification.NewSink(notificationRepo)

	// Temporary booking holds, backed by Redis when configured.
	var redisClient *redis.Client
	holds := booking.NewNopHoldStore()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		holds = booking.NewRedisHoldStore(redisClient, cfg.HoldTTL)
	}

	// Booking module
	bookingRepo := booking.NewPgxRepository(pool)
	bookingService := booking.NewService(bookingRepo, machineRepo, holds, eventSink, cfg.MaxRentalDays)

	// Payment module
	paymentRepo := payment.NewPgxRepository(pool)
	paymentService := payment.NewService(paymentRepo, bookingService)

	// Background jobs
	runner := jobs.NewRunner(bookingService, machineService)
	sched, err := scheduler.New(cfg, runner)
	if err != nil {
		return nil, err
	}

	router := api.NewRouter(
		cfg,
		userService,
		machineService,
		maintenanceService,
		bookingService,
		paymentService,
		notificationService,
		jwtManager,
	)

	return &Container{
		Router:    router,
		Scheduler: sched,
		Redis:     redisClient,
	}, nil
}
