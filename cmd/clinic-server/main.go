package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/domain/clinicconfig"
	"github.com/clinicdesk/clinicdesk/internal/domain/identity"
	"github.com/clinicdesk/clinicdesk/internal/domain/notification"
	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/professional"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/cache"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/internal/platform/jobs"
	"github.com/clinicdesk/clinicdesk/internal/platform/metrics"
	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}

	createUserCmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff user",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL())
			svc := identity.NewService(identity.NewUserRepoPG(pool), tokens)

			u := &identity.User{Name: name, Email: email, Role: role}
			if err := svc.CreateUser(ctx, u, password); err != nil {
				return err
			}
			fmt.Printf("Created user %s (%s) with role %s.\n", u.Name, u.Email, u.Role)
			return nil
		},
	}
	createUserCmd.Flags().String("name", "", "Full name")
	createUserCmd.Flags().String("email", "", "Login email")
	createUserCmd.Flags().String("password", "", "Initial password")
	createUserCmd.Flags().String("role", auth.RoleSecretary, "Role: ADMIN or SECRETARY")

	cmd.AddCommand(createUserCmd)
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	cacheClient := cache.NewNoop()
	if cfg.RedisURL != "" {
		c, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cacheClient = c
		logger.Info().Msg("availability cache backed by redis")
	}

	metrics.Register()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL())

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpapi.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	api := e.Group("/api")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	authed := func(prefix string) *echo.Group {
		return api.Group(prefix, auth.Middleware(tokens))
	}

	// -- Domain wiring --

	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), tokens)
	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterAuthRoutes(api.Group("/auth"), authed("/auth"))
	identityHandler.RegisterUserRoutes(authed("/users"))

	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(authed("/patients"))

	profSvc := professional.NewService(
		professional.NewRepoPG(pool),
		professional.NewWorkingHourRepoPG(pool),
		professional.NewScheduleBlockRepoPG(pool),
		professional.NewTreatmentTypeRepoPG(pool),
		cacheClient,
	)
	professional.NewHandler(profSvc).RegisterRoutes(authed("/professionals"))

	senders := map[string]notification.Sender{}
	if cfg.SMTPHost != "" {
		senders[notification.ChannelEmail] = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	if cfg.WhatsAppURL != "" {
		senders[notification.ChannelWhatsApp] = notification.NewWhatsAppSender(notification.WhatsAppConfig{
			APIURL:     cfg.WhatsAppURL,
			AccountSID: cfg.WhatsAppSID,
			AuthToken:  cfg.WhatsAppToken,
			From:       cfg.WhatsAppFrom,
		})
	}

	apptRepo := appointment.NewRepoPG(pool)
	notifSvc := notification.NewService(notification.NewRepoPG(pool), senders,
		patientSvc, profSvc, apptRepo, logger)
	notification.NewHandler(notifSvc).RegisterRoutes(authed("/notifications"))

	apptSvc := appointment.NewService(apptRepo, patientSvc, profSvc, cacheClient, notifSvc)
	appointment.NewHandler(apptSvc).RegisterRoutes(authed("/appointments"))

	settingsSvc := clinicconfig.NewService(clinicconfig.NewRepoPG(pool))
	clinicconfig.NewHandler(settingsSvc).RegisterRoutes(authed("/config"))

	// -- Background jobs --

	runner := jobs.NewRunner(logger)

	runner.Register("appointment-reminders", time.Hour, func(ctx context.Context) error {
		lead := 24 * time.Hour
		if st, err := settingsSvc.Get(ctx, "reminders.lead_hours"); err == nil {
			if hours, err := strconv.Atoi(st.Value); err == nil && hours > 0 {
				lead = time.Duration(hours) * time.Hour
			}
		}
		from := time.Now().Add(lead)
		queued, err := notifSvc.EnqueueReminders(ctx, from, from.Add(time.Hour))
		if err != nil {
			return err
		}
		if queued > 0 {
			logger.Info().Int("queued", queued).Msg("appointment reminders queued")
		}
		return nil
	})

	runner.Register("notification-dispatch", time.Minute, func(ctx context.Context) error {
		sent, err := notifSvc.DispatchDue(ctx)
		if sent > 0 {
			logger.Info().Int("sent", sent).Msg("notifications dispatched")
		}
		return err
	})

	runner.Register("notification-cleanup", 24*time.Hour, func(ctx context.Context) error {
		deleted, err := notifSvc.Cleanup(ctx)
		if deleted > 0 {
			logger.Info().Int("deleted", deleted).Msg("old notifications removed")
		}
		return err
	})

	runner.Register("db-healthcheck", 5*time.Minute, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	})

	jobs.NewHandler(runner).RegisterRoutes(authed("/scheduler"))

	jobCtx, stopJobs := context.WithCancel(ctx)
	runner.Start(jobCtx)

	// Operational endpoints
	e.GET("/health", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// -- Serve --

	go func() {
		addr := ":" + cfg.Port
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()
	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	stopJobs()
	runner.Wait()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
