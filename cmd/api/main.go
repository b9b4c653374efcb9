package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/config"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/dashboard-access-go/internal/handler/http"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/cache"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/cron"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/database"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/email"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/dashboard-access-go/internal/repository/memory"
	"github.com/cmlabs-hris/dashboard-access-go/internal/repository/postgresql"
	accessService "github.com/cmlabs-hris/dashboard-access-go/internal/service/access"
	invitationService "github.com/cmlabs-hris/dashboard-access-go/internal/service/invitation"
	roleService "github.com/cmlabs-hris/dashboard-access-go/internal/service/role"
	userService "github.com/cmlabs-hris/dashboard-access-go/internal/service/user"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type stores struct {
	tx             database.Transactor
	invitationRepo invitation.InvitationRepository
	roleRepo       role.RoleRepository
	userRepo       user.UserRepository
	close          func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize store: ", err)
	}
	defer st.close()

	var accessCache cache.AccessCache = cache.NopCache{}
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.CacheTTL)
		if err != nil {
			log.Fatal("Failed to connect to redis: ", err)
		}
		accessCache = redisCache
	}
	defer accessCache.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	emailService, err := email.NewEmailService(cfg.SMTP)
	if err != nil {
		log.Fatal("Failed to initialize email service: ", err)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	evaluator := access.NewEvaluator(cfg.App.LoginURL, cfg.App.UnauthorizedURL)

	accessSvc := accessService.NewAccessService(st.userRepo, accessCache, evaluator, m)
	roleSvc := roleService.NewRoleService(st.tx, st.roleRepo, st.userRepo, accessSvc, m)
	userSvc := userService.NewUserService(st.tx, st.userRepo, st.roleRepo, accessSvc)
	invitationSvc := invitationService.NewInvitationService(
		st.tx,
		st.invitationRepo,
		st.userRepo,
		st.roleRepo,
		accessSvc,
		emailService,
		m,
		invitationService.Config{
			Expiry:       cfg.Invitation.Expiry,
			DashboardURL: cfg.App.DashboardURL,
		},
	)

	scheduler := cron.NewScheduler()
	if err := cron.NewInvitationJobs(invitationSvc, cfg.Invitation.SweepSchedule).RegisterJobs(scheduler); err != nil {
		log.Fatal("Failed to register cron jobs: ", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:         logger,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Metrics:        m.Handler(),
		},
		JWTService,
		accessSvc,
		appHTTP.NewAccessHandler(accessSvc),
		appHTTP.NewInvitationHandler(invitationSvc),
		appHTTP.NewRoleHandler(roleSvc),
		appHTTP.NewUserHandler(userSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server running", "addr", server.Addr, "env", cfg.App.Env, "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		slog.Warn("using in-memory document store; data is lost on restart")
		return &stores{
			tx:             store,
			invitationRepo: memory.NewInvitationRepository(store),
			roleRepo:       memory.NewRoleRepository(store),
			userRepo:       memory.NewUserRepository(store),
			close:          func() {},
		}, nil
	case config.StoreDriverPostgres:
		db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return &stores{
			tx:             postgresql.NewTransactor(db),
			invitationRepo: postgresql.NewInvitationRepository(db),
			roleRepo:       postgresql.NewRoleRepository(db),
			userRepo:       postgresql.NewUserRepository(db),
			close:          db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(app.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(app.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "dashboard-access"),
		slog.String("version", "v1.0.0"),
		slog.String("env", app.Env),
	)
}
