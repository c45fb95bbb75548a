package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/smart-parking/internal/config"
	"github.com/iliyamo/smart-parking/internal/database"
	"github.com/iliyamo/smart-parking/internal/handler"
	"github.com/iliyamo/smart-parking/internal/metrics"
	"github.com/iliyamo/smart-parking/internal/middleware"
	"github.com/iliyamo/smart-parking/internal/queue"
	"github.com/iliyamo/smart-parking/internal/repository"
	"github.com/iliyamo/smart-parking/internal/router"
	"github.com/iliyamo/smart-parking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and caching disabled, fingerprints stored in %s", cfg.DataDir)
	} else {
		defer rdb.Close()
	}

	pc, err := config.LoadPriorityConfig(cfg.PriorityFile)
	if err != nil {
		log.Fatalf("priority config: %v", err)
	}
	ranges := make(map[string][]string, len(pc.PrioritySlots))
	for block, entries := range pc.PrioritySlots {
		ids, err := config.ExpandSlotRanges(entries)
		if err != nil {
			log.Fatalf("priority slots for %s: %v", block, err)
		}
		ranges[block] = ids
	}

	slots := repository.NewSlotRegistry(cfg.Blocks, cfg.SlotsPerBlock)
	directory := service.NewIdentityDirectory(pc.Staff)
	policy := service.NewPriorityPolicy(directory, slots, ranges, pc.MaxPriorityLevel)

	prints := fingerprintStore(cfg, rdb)
	audit, err := repository.NewAuditFileRepo(cfg.DataFile("security_log.json"), repository.DefaultAuditLimit)
	if err != nil {
		log.Fatalf("audit store: %v", err)
	}
	bookings := bookingStore(ctx, cfg)

	var notifier service.Notifier = service.LogNotifier{}
	var events service.EventPublisher
	if cfg.NotifyDriver == "amqp" || cfg.EventsEnabled {
		pub := &service.Publisher{URL: cfg.AMQPURL}
		if cfg.NotifyDriver == "amqp" {
			notifier = service.QueueNotifier{Publisher: pub}
			go func() {
				_ = queue.StartConsumer(ctx, cfg.AMQPURL, queue.NotificationsQueue, queue.NotificationDeliverer(service.LogNotifier{}))
			}()
		}
		if cfg.EventsEnabled {
			events = pub
			go func() {
				_ = queue.StartConsumer(ctx, cfg.AMQPURL, queue.SlotEventsQueue, queue.SlotEventLogger("logs"))
			}()
		}
	}

	tickets := service.NewTicketManager(slots, service.TicketManagerOptions{
		TTL:         cfg.TicketTTL,
		MaxAttempts: cfg.MaxAttempts,
		BaseURL:     cfg.BaseURL,
		Policy:      policy,
	})
	svc := service.NewParkingService(service.Deps{
		Slots:     slots,
		Tickets:   tickets,
		Directory: directory,
		Policy:    policy,
		Trust:     service.NewFingerprintTrustEngine(prints, nil),
		Auditor:   service.NewSecurityAuditor(audit, prints, nil),
		Bookings:  bookings,
		Notifier:  notifier,
		Events:    events,
	})
	if n, err := svc.Recover(ctx); err != nil {
		log.Printf("recover bookings: %v", err)
	} else if n > 0 {
		log.Printf("restored %d bookings", n)
	}
	svc.StartSweeper(ctx, cfg.SweepInterval)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.Metrics())

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterRoutes(e)
	router.RegisterParking(e, handler.NewParkingHandler(svc), handler.NewFingerprintHandler(svc), limit)
	router.RegisterPriority(e, handler.NewPriorityHandler(svc), limit)
	router.RegisterAdmin(e, handler.NewAdminHandler(cfg, svc), cfg.JWTSecret,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, blocks=%d, staff=%d)", addr, cfg.Env, len(cfg.Blocks), directory.Len())
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// fingerprintStore keeps device history in Redis when it is reachable and
// in a JSON file otherwise.
func fingerprintStore(cfg config.Config, rdb *redis.Client) service.FingerprintStore {
	if rdb != nil {
		return repository.NewFingerprintRedisRepo(rdb, "parking:fp", repository.DefaultHistoryLimit)
	}
	repo, err := repository.NewFingerprintFileRepo(cfg.DataFile("device_fingerprints.json"), repository.DefaultHistoryLimit)
	if err != nil {
		log.Fatalf("fingerprint store: %v", err)
	}
	return repo
}

// bookingStore uses MySQL when DB_HOST is set and bookings.json otherwise.
func bookingStore(ctx context.Context, cfg config.Config) service.BookingStore {
	if cfg.DBHost != "" {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("mysql: %v", err)
		}
		repo := repository.NewBookingMySQLRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("mysql schema: %v", err)
		}
		return repo
	}
	repo, err := repository.NewBookingFileRepo(cfg.DataFile("bookings.json"))
	if err != nil {
		log.Fatalf("booking store: %v", err)
	}
	return repo
}
