// @title Event Ticketing API
// @version 1.0
// @description Seat booking, cancellation and venue check-in.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"eventticketing/config"
	_ "eventticketing/docs"
	"eventticketing/internal/adapters/auth"
	"eventticketing/internal/adapters/email"
	"eventticketing/internal/adapters/qrcode"
	"eventticketing/internal/adapters/queue"
	"eventticketing/internal/clock"
	deliveryhttp "eventticketing/internal/delivery/http"
	"eventticketing/internal/delivery/http/controllers"
	"eventticketing/internal/delivery/http/middleware"
	"eventticketing/internal/domain"
	"eventticketing/internal/repository/memory"
	"eventticketing/internal/repository/postgres"
	"eventticketing/internal/services"
	"eventticketing/migrations"
)

// repositories is the storage wiring shared by the services.
type repositories struct {
	tx       domain.TxManager
	events   domain.EventRepository
	tickets  domain.TicketRepository
	checkIns domain.CheckInRepository
	users    domain.UserRepository
	ping     func(ctx context.Context) error
	close    func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			log.Fatal("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret"
		logger.Warn("JWT_SECRET not set, using an insecure development secret")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	repos, err := openStore(startupCtx, cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = repos.close() }()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:             cfg.Mailer.AWSRegion,
			AccessKeyID:        cfg.Mailer.AWSAccessKeyID,
			SecretAccessKey:    cfg.Mailer.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Mailer.InsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		log.Fatalf("create mailer: %v", err)
	}

	publisher, closePublisher, err := queue.NewPublisher(queue.Config{
		URL:             cfg.Queue.URL,
		Queue:           cfg.Queue.Name,
		BreakerTimeout:  cfg.Queue.BreakerTimeout,
		BreakerFailures: cfg.Queue.BreakerFailures,
	}, logger)
	if err != nil {
		log.Fatalf("connect queue: %v", err)
	}
	defer func() { _ = closePublisher() }()

	limiter := newLimiter(startupCtx, cfg, logger)

	clk := clock.NewSystem()
	notifications := &services.Notifications{}
	opts := []services.Option{
		services.WithNotifications(notifications),
		services.WithClock(clk),
		services.WithLogger(logger),
		services.WithPublisher(publisher),
	}
	ledger := services.NewSeatLedger(repos.events, logger)
	bookingSvc := services.NewBookingService(repos.tx, ledger, repos.events, repos.tickets, repos.users, cfg.ContextTimeout,
		append(opts,
			services.WithQRCodeGenerator(qrcode.NewGenerator(qrcode.DefaultSize)),
			services.WithEmailService(services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)),
		)...)
	checkInSvc := services.NewCheckInService(repos.tx, repos.tickets, repos.events, repos.checkIns,
		services.CheckInWindow{Early: cfg.CheckIn.EarlyWindow, Late: cfg.CheckIn.LateWindow}, cfg.ContextTimeout, opts...)
	eventSvc := services.NewEventService(repos.events, repos.users, clk, cfg.ContextTimeout)

	mux := deliveryhttp.NewRouter(deliveryhttp.RouterDeps{
		Logger:    logger,
		Tickets:   controllers.NewTicketController(logger, bookingSvc),
		CheckIns:  controllers.NewCheckInController(logger, checkInSvc),
		Events:    controllers.NewEventController(logger, eventSvc, bookingSvc),
		Verifier:  auth.NewJWTVerifier(cfg.JWTSecret),
		Limiter:   limiter,
		RateLimit: cfg.RateLimit,
		Ping:      repos.ping,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deliveryhttp.WithMiddleware(mux, logger, cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", "port", cfg.Port, "store", cfg.Store)
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "err", err)
	}
	// Drain notifications before the deferred publisher close runs.
	if err := notifications.Wait(shutdownCtx); err != nil {
		logger.Warn("pending notifications abandoned at shutdown", "err", err)
	}
	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	if cfg.Store == "memory" {
		store := memory.NewStore()
		seedDevUsers(store, cfg, logger)
		events, tickets, checkIns, users := store.Repositories()
		return &repositories{
			tx: store, events: events, tickets: tickets, checkIns: checkIns, users: users,
			close: func() error { return nil },
		}, nil
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database ready")
	return &repositories{
		tx:       postgres.NewTxManager(db),
		events:   postgres.NewEventRepository(db),
		tickets:  postgres.NewTicketRepository(db),
		checkIns: postgres.NewCheckInRepository(db),
		users:    postgres.NewUserRepository(db),
		ping:     db.PingContext,
		close:    db.Close,
	}, nil
}

// seedDevUsers populates the in-memory user directory with one user per role and
// logs a bearer token for each outside production.
func seedDevUsers(store *memory.Store, cfg *config.Config, logger *slog.Logger) {
	if cfg.Environment == "production" {
		logger.Warn("memory store in production has no users; every booking will fail")
		return
	}
	issuer := auth.NewJWTIssuer(cfg.JWTSecret)
	now := time.Now().UTC()
	for _, u := range []*domain.User{
		{ID: "dev-organizer", Email: "organizer@example.com", Name: "Dev Organizer", Role: domain.RoleOrganizer, CreatedAt: now},
		{ID: "dev-staff", Email: "staff@example.com", Name: "Dev Staff", Role: domain.RoleStaff, CreatedAt: now},
		{ID: "dev-attendee", Email: "attendee@example.com", Name: "Dev Attendee", Role: domain.RoleAttendee, CreatedAt: now},
	} {
		store.AddUser(u)
		token, err := issuer.Issue(u.ID, u.Email, []string{u.Role}, 24*time.Hour)
		if err != nil {
			logger.Error("issue dev token", "user_id", u.ID, "err", err)
			continue
		}
		logger.Info("dev user seeded", "user_id", u.ID, "role", u.Role, "token", token)
	}
}

// newLimiter connects to Redis when rate limiting is enabled. A missing or unreachable
// Redis disables limiting rather than failing startup.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) middleware.Limiter {
	if !cfg.RateLimit.Enabled || cfg.Redis.Addr == "" {
		logger.Info("rate limiting disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiting disabled", "addr", cfg.Redis.Addr, "err", err)
		_ = rdb.Close()
		return nil
	}
	return middleware.NewRedisLimiter(rdb, cfg.RateLimit)
}
