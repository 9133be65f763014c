package app

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/api"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/auth"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/booking"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/cancellation"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/config"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/db"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/events"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/payment"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/lease"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/worker"
)

// Config holds the dependencies and settings required to start the application.
// Publisher and Locker are optional.
type Config struct {
	Settings  *config.Config
	Logger    *slog.Logger
	DBPool    *pgxpool.Pool
	Gateway   payment.Gateway
	Publisher events.Publisher
	Locker    lease.Locker
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router        *gin.Engine
	JWTManager    *auth.JWTManager
	Reservations  reservation.Service
	Cancellations cancellation.Service
	Sweeper       *worker.Sweeper
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	s := cfg.Settings
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	gateway := cfg.Gateway
	if gateway == nil {
		gateway = payment.NewSandboxGateway(s.PaymentSigningSecret)
	}
	locker := cfg.Locker
	if locker == nil {
		locker = lease.NewLocal()
	}

	jwtManager := auth.NewJWTManager(s.JWTSecret, s.JWTAccessTokenTTL)

	txRunner := db.NewTxRunner(cfg.DBPool, db.TxConfig{
		LockTimeout:  s.DBLockTimeout,
		MaxAttempts:  s.DBTxMaxAttempts,
		RetryBackoff: s.DBTxRetryBackoff,
	}, logger)

	// Reservation module
	store := reservation.NewPgxStore(cfg.DBPool, txRunner)
	reservationService := reservation.NewService(store, gateway, publisher, reservation.Config{
		HoldDuration:      s.HoldDuration,
		DraftRetention:    s.DraftRetention,
		Currency:          s.Currency,
		CommissionBPS:     s.CommissionBPS,
		BatchSize:         s.SweepBatchSize,
		RefundMaxAttempts: s.RefundMaxAttempts,
		RefundStaleAfter:  s.SweepInterval,
	}, reservation.WithLogger(logger))

	// Cancellation module
	cancellationService := cancellation.NewService(reservationService, gateway, cancellation.Policy{
		FullRefundWindow:     s.RefundFullWindow,
		PartialRefundWindow:  s.RefundPartialWindow,
		PartialRefundPercent: s.RefundPartialPercent,
	}, cancellation.WithLogger(logger))

	// Booking module
	bookingService := booking.NewService(booking.NewPgxRepository(cfg.DBPool))

	router := api.NewRouter(api.Config{
		IsProduction:        s.IsProduction,
		ProdOrigins:         s.ProdOrigins,
		Logger:              logger,
		ReservationService:  reservationService,
		CancellationService: cancellationService,
		BookingService:      bookingService,
		JWTManager:          jwtManager,
	})

	sweeper := worker.NewSweeper(reservationService, cancellationService, locker, s.SweepInterval, logger)

	return &Container{
		Router:        router,
		JWTManager:    jwtManager,
		Reservations:  reservationService,
		Cancellations: cancellationService,
		Sweeper:       sweeper,
	}
}
