// Package app assembles the HTTP server from the domain handlers and the
// platform middleware.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/abaranti/abaranti/internal/domain/employee"
	"github.com/abaranti/abaranti/internal/domain/partner"
	"github.com/abaranti/abaranti/internal/domain/patient"
	"github.com/abaranti/abaranti/internal/domain/treatment"
	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/hipaa"
	"github.com/abaranti/abaranti/internal/platform/middleware"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/render"
	"github.com/abaranti/abaranti/internal/platform/workflow"
)

// Repositories are the persistence collaborators behind the domain services.
type Repositories struct {
	Employees  employee.Repository
	Hospitals  partner.HospitalRepository
	Suppliers  partner.SupplierRepository
	Patients   patient.Repository
	Medicines  treatment.MedicineRepository
	Treatments treatment.TreatmentRepository
}

// PGRepositories returns the Postgres repositories. phi may be nil, in which
// case insurance numbers are stored as entered.
func PGRepositories(pool *pgxpool.Pool, phi *hipaa.EncryptionService) Repositories {
	return Repositories{
		Employees:  employee.NewRepoPG(pool),
		Hospitals:  partner.NewHospitalRepoPG(pool),
		Suppliers:  partner.NewSupplierRepoPG(pool),
		Patients:   patient.NewRepoPG(pool, phi),
		Medicines:  treatment.NewMedicineRepoPG(pool),
		Treatments: treatment.NewTreatmentRepoPG(pool),
	}
}

type Options struct {
	SessionKey    []byte
	SessionTTL    time.Duration
	SecureCookies bool

	LoginRateLimit middleware.RateLimitConfig
	RequestTimeout time.Duration
	BodyLimit      string

	// Registry enables /metrics plus the HTTP and workflow metrics.
	Registry *prometheus.Registry
	// DB enables /health/db.
	DB db.Pinger
	// Renderer defaults to the embedded templates.
	Renderer echo.Renderer
	// Tx, when set, makes confirm commit and clear the pending change
	// atomically.
	Tx workflow.TxFunc
}

// NewServer builds the echo instance. Background cleanup started here stops
// when ctx is cancelled.
func NewServer(ctx context.Context, repos Repositories, store pending.Store, opts Options, logger zerolog.Logger) (*echo.Echo, error) {
	if opts.Renderer == nil {
		r, err := render.New()
		if err != nil {
			return nil, err
		}
		opts.Renderer = r
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "64K"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.LoginRateLimit.RequestsPerSecond <= 0 {
		opts.LoginRateLimit = middleware.DefaultLoginRateLimitConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = opts.Renderer
	e.HTTPErrorHandler = render.ErrorHandler(logger)

	var wfMetrics *workflow.Metrics
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if opts.Registry != nil {
		e.Use(middleware.NewHTTPMetrics(opts.Registry).Middleware())
		wfMetrics = workflow.NewMetrics(opts.Registry)
	}
	e.Use(middleware.SecurityHeaders(opts.SecureCookies))
	e.Use(middleware.BodyLimit(opts.BodyLimit))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.RequestTimeout(opts.RequestTimeout))
	e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
		Skipper:        func(c echo.Context) bool { return auth.IsInfraPath(c.Path()) },
		TokenLookup:    "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "abaranti_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   opts.SecureCookies,
		CookieSameSite: http.SameSiteLaxMode,
	}))

	sessions := auth.NewSessionManager(auth.SessionConfig{
		SigningKey: opts.SessionKey,
		TTL:        opts.SessionTTL,
		Secure:     opts.SecureCookies,
	})
	e.Use(sessions.Middleware())
	e.Use(auth.RequireSession("/login"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.DB != nil {
		e.GET("/health/db", db.HealthHandler(opts.DB))
	}
	if opts.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	loginLimiter := middleware.NewRateLimiter(opts.LoginRateLimit)
	loginLimiter.StartCleanup(ctx, time.Minute)

	engine := workflow.NewEngine(store, logger, wfMetrics)
	if opts.Tx != nil {
		engine.WithTx(opts.Tx)
	}
	g := e.Group("")

	employee.NewHandler(employee.NewService(repos.Employees, logger), engine, sessions, store, logger, loginLimiter.Middleware()).RegisterRoutes(g)
	partner.NewHandler(partner.NewService(repos.Hospitals, repos.Suppliers), engine).RegisterRoutes(g)
	patient.NewHandler(patient.NewService(repos.Patients), engine).RegisterRoutes(g)
	treatment.NewHandler(treatment.NewService(repos.Medicines, repos.Treatments, repos.Patients), engine).RegisterRoutes(g)

	return e, nil
}
