package main

import (
	"bufio"
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abaranti/abaranti/internal/app"
	"github.com/abaranti/abaranti/internal/config"
	"github.com/abaranti/abaranti/internal/domain/employee"
	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/hipaa"
	"github.com/abaranti/abaranti/internal/platform/middleware"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "abaranti-server",
		Short: "Hospital administration web application",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(employeeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	})

	return cmd
}

// employeeCmd bootstraps staff accounts. The first reception account has to
// exist before anyone can register employees through the web pages.
func employeeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account; the password is read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			lastName, _ := cmd.Flags().GetString("last-name")
			firstName, _ := cmd.Flags().GetString("first-name")
			roleName, _ := cmd.Flags().GetString("role")
			if id == "" || lastName == "" || firstName == "" {
				return fmt.Errorf("--id, --last-name and --first-name are required")
			}
			role, err := parseRole(roleName)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

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

			svc := employee.NewService(employee.NewRepoPG(pool), newLogger(cfg))
			e := &employee.Employee{EmpID: id, LastName: lastName, FirstName: firstName, Role: role}
			if err := svc.Create(ctx, e, password); err != nil {
				if errors.Is(err, db.ErrDuplicate) {
					return fmt.Errorf("employee %s already exists", id)
				}
				return err
			}
			fmt.Printf("Employee %s (%s) created.\n", id, role)
			return nil
		},
	}
	createCmd.Flags().String("id", "", "Employee ID (up to 8 letters and digits)")
	createCmd.Flags().String("last-name", "", "Last name")
	createCmd.Flags().String("first-name", "", "First name")
	createCmd.Flags().String("role", "reception", "reception or doctor")

	cmd.AddCommand(createCmd)
	return cmd
}

func parseRole(name string) (auth.Role, error) {
	switch strings.ToLower(name) {
	case "reception":
		return auth.RoleReception, nil
	case "doctor":
		return auth.RoleDoctor, nil
	}
	return 0, fmt.Errorf("unknown role %q: use reception or doctor", name)
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	return password, nil
}

func runServer(migrate bool) error {
	// Config
	cfg, err := config.Load()
	logger := newLogger(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if migrate {
		n, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	// PHI encryption
	phi, err := hipaa.NewEncryptionService(cfg.PHIEncryptionKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise PHI encryption")
	}
	var sealer pending.Sealer
	if phi.IsEnabled() {
		sealer = phi
	}

	// Pending change store
	store, closeStore, err := openPendingStore(cfg, pool, sealer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open pending change store")
	}
	defer closeStore()
	if p, ok := store.(pending.Purger); ok {
		pending.StartCleanup(ctx, p, time.Minute, logger)
	}
	logger.Info().Str("store", cfg.PendingStore).Dur("ttl", cfg.PendingTTL).Msg("pending change store ready")

	// Session signing key
	sessionKey, generated, err := resolveSessionKey(cfg.SessionSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid SESSION_SECRET")
	}
	if generated {
		logger.Warn().Msg("SESSION_SECRET not set; using a random key, sessions end on restart")
	}

	opts := app.Options{
		SessionKey:    sessionKey,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.CookieSecure,
		LoginRateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.LoginRateLimitRPS,
			BurstSize:         cfg.LoginRateLimitBurst,
			Message:           "too many login attempts, try again later",
		},
		DB: pool,
	}
	if cfg.PendingStore == "postgres" {
		opts.Tx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}
	}
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Registry = reg
	}

	e, err := app.NewServer(ctx, app.PGRepositories(pool, phi), store, opts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openPendingStore returns the configured store and a func releasing it.
func openPendingStore(cfg *config.Config, pool *pgxpool.Pool, sealer pending.Sealer) (pending.Store, func(), error) {
	switch cfg.PendingStore {
	case "memory":
		return pending.NewMemoryStore(cfg.PendingTTL), func() {}, nil
	case "sqlite":
		s, err := pending.NewSQLiteStore(cfg.PendingSQLitePath, cfg.PendingTTL, sealer)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		return pending.NewPGStore(pool, cfg.PendingTTL, sealer), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown PENDING_STORE %q", cfg.PendingStore)
}

// resolveSessionKey decodes SESSION_SECRET (hex) or generates a random
// 32-byte key. The second return value is true when a key was generated.
func resolveSessionKey(envValue string) ([]byte, bool, error) {
	if envValue != "" {
		decoded, err := hex.DecodeString(envValue)
		if err != nil {
			return nil, false, fmt.Errorf("invalid SESSION_SECRET hex value: %w", err)
		}
		return decoded, false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random session key: %w", err)
	}
	return key, true, nil
}
