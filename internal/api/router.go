package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/auth"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/booking"
	bookingHttp "github.com/SafalBhandari12/sojournBackend-sub001/internal/booking/http"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/cancellation"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation"
	reservationHttp "github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation/http"
)

// Config holds the dependencies required by the router.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *slog.Logger

	ReservationService  reservation.Service
	CancellationService cancellation.Service
	BookingService      booking.Service

	JWTManager *auth.JWTManager
}

// NewRouter assembles middleware and registers the routes of every module.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(cfg.Logger), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService, cfg.CancellationService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)

	v1 := r.Group("/v1")
	{
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
	}

	return r
}

func corsConfig(cfg Config) cors.Config {
	config := cors.DefaultConfig()
	if cfg.IsProduction {
		config.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", headerRequestID}
	config.ExposeHeaders = []string{headerRequestID}
	return config
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
