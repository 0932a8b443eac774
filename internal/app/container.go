package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/courtly/scheduler/internal/api"
	"github.com/courtly/scheduler/internal/auth"
	"github.com/courtly/scheduler/internal/availability"
	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/bulk"
	"github.com/courtly/scheduler/internal/court"
	"github.com/courtly/scheduler/internal/pkg/logger"
	"github.com/courtly/scheduler/internal/pkg/metrics"
	"github.com/courtly/scheduler/internal/storage/memory"
	"github.com/courtly/scheduler/internal/timeslot"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	// DBPool selects Postgres storage; nil runs on the in-memory store.
	DBPool        *pgxpool.Pool
	Redis         *redis.Client
	CourtCacheTTL time.Duration
	Events        booking.EventPublisher
	Logger        *logrus.Logger
	Registry      *prometheus.Registry
	JWTSecret     string
	JWTTTL        time.Duration
	Limits        availability.Limits
	Clock         func() time.Time
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Courts     court.Repository
	TimeSlots  timeslot.Service
	Bookings   booking.Service
	Resolver   *availability.Resolver
	Bulk       *bulk.Orchestrator
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Limits == (availability.Limits{}) {
		cfg.Limits = availability.DefaultLimits()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	m := metrics.New(cfg.Registry)

	// Storage
	var (
		courtRepo   court.Repository
		slotRepo    timeslot.Repository
		bookingRepo booking.Repository
	)
	if cfg.DBPool != nil {
		courtRepo = court.NewPgxRepository(cfg.DBPool)
		slotRepo = timeslot.NewPgxRepository(cfg.DBPool)
		bookingRepo = booking.NewPgxRepository(cfg.DBPool)
	} else {
		store := memory.New()
		courtRepo = store.Courts()
		slotRepo = store.Slots()
		bookingRepo = store.Bookings()
	}

	// Court Directory
	var courts court.Directory = courtRepo
	if cfg.Redis != nil {
		courts = court.NewCachedDirectory(courtRepo, cfg.Redis, cfg.CourtCacheTTL, cfg.Logger)
	}

	// TimeSlot Module
	slotService := timeslot.NewService(slotRepo, courts, cfg.Logger)

	// Booking Module
	opts := []booking.Option{
		booking.WithLogger(cfg.Logger),
		booking.WithMetrics(m),
		booking.WithClock(cfg.Clock),
	}
	if cfg.Events != nil {
		opts = append(opts, booking.WithEvents(cfg.Events))
	}
	bookingService := booking.NewService(bookingRepo, slotService, courts, opts...)

	// Availability and Bulk
	resolver := availability.NewResolver(courts, slotService, bookingService, cfg.Limits, m)
	orchestrator := bulk.NewOrchestrator(resolver, bookingService, cfg.Logger, m)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		Logger:          cfg.Logger,
		Gatherer:        cfg.Registry,
		JWTManager:      jwtManager,
		TimeSlotService: slotService,
		BookingService:  bookingService,
		Resolver:        resolver,
		Orchestrator:    orchestrator,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Courts:     courtRepo,
		TimeSlots:  slotService,
		Bookings:   bookingService,
		Resolver:   resolver,
		Bulk:       orchestrator,
	}
}
