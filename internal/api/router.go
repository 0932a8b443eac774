package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/courtly/scheduler/internal/auth"
	"github.com/courtly/scheduler/internal/availability"
	availabilityHttp "github.com/courtly/scheduler/internal/availability/http"
	"github.com/courtly/scheduler/internal/booking"
	bookingHttp "github.com/courtly/scheduler/internal/booking/http"
	"github.com/courtly/scheduler/internal/bulk"
	bulkHttp "github.com/courtly/scheduler/internal/bulk/http"
	"github.com/courtly/scheduler/internal/timeslot"
	timeslotHttp "github.com/courtly/scheduler/internal/timeslot/http"
)

// Config holds everything the router needs.
type Config struct {
	IsProduction    bool
	ProdOrigins     string
	Logger          *logrus.Logger
	Gatherer        prometheus.Gatherer
	JWTManager      *auth.JWTManager
	TimeSlotService timeslot.Service
	BookingService  booking.Service
	Resolver        *availability.Resolver
	Orchestrator    *bulk.Orchestrator
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - RequestLogger: Logs request information through logrus.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(cfg.Logger), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:8081", // Swagger
	}
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// adminMiddleware: Further checks the token's admin claim.
	adminMiddleware := auth.RequireAdmin()

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	timeslotHandler := timeslotHttp.NewHandler(cfg.TimeSlotService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	availabilityHandler := availabilityHttp.NewHandler(cfg.Resolver)
	bulkHandler := bulkHttp.NewHandler(cfg.Orchestrator)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		timeslotHttp.RegisterRoutes(v1, timeslotHandler, authMiddleware, adminMiddleware)
		availabilityHttp.RegisterRoutes(v1, availabilityHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, adminMiddleware)
		bulkHttp.RegisterRoutes(v1, bulkHandler, authMiddleware)
	}

	return r
}
