package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/partnerdesk/internal/accounts"
	"github.com/2beens/partnerdesk/internal/config"
	"github.com/2beens/partnerdesk/internal/db"
	"github.com/2beens/partnerdesk/internal/directory"
	"github.com/2beens/partnerdesk/internal/gate"
	"github.com/2beens/partnerdesk/internal/middleware"
	"github.com/2beens/partnerdesk/internal/misc"
	"github.com/2beens/partnerdesk/internal/tables"
	"github.com/2beens/partnerdesk/internal/telemetry/metrics"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"
	"github.com/2beens/partnerdesk/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config    *config.Config
	sqlDB     *sql.DB
	store     *accounts.Store
	gate      *gate.Gate
	tables    *tables.Browser
	directory *directory.Directory

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config            *config.Config
	VersionInfo       string
	AdminUsername     string
	AdminPasswordHash string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (_ *Server, err error) {
	sqlDB, err := db.Open(ctx, db.OpenParams{Path: params.Config.DBPath})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlDB.Close()
		}
	}()

	if err := db.Migrate(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	promRegistry := metrics.SetupPrometheus(collectors.NewDBStatsCollector(sqlDB, "partnerdesk"))
	metricsManager := metrics.NewManager("partnerdesk", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	store := accounts.NewStore(sqlDB, accounts.NewHasher(params.Config.PasswordIterations), metricsManager)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure accounts schema: %w", err)
	}
	if err := seedAdmin(ctx, store, params.AdminUsername, params.AdminPasswordHash); err != nil {
		return nil, err
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.Config.HoneycombEnabled, "partnerdesk")
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      params.Config,
		versionInfo: params.VersionInfo,
		sqlDB:       sqlDB,
		store:       store,
		gate:        gate.New(store, gate.NewRegistry(metricsManager), metricsManager),
		tables:      tables.NewBrowser(sqlDB, params.Config.TablesCacheSizeMB),
		directory:   directory.New(sqlDB),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

// seedAdmin creates the first admin from a pre-hashed password when the
// accounts table is empty. Without a username it does nothing.
func seedAdmin(ctx context.Context, store *accounts.Store, username, passwordHash string) error {
	if username == "" {
		return nil
	}
	if passwordHash == "" {
		return errors.New("admin username given without a password hash")
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if count > 0 {
		log.Debugf("accounts exist, admin [%s] not seeded", username)
		return nil
	}

	if err := store.CreateWithHash(ctx, username, passwordHash, "", accounts.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Infof("admin account [%s] seeded", username)
	return nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("partnerdesk-router"))

	misc.NewHandler(s.versionInfo).SetupRoutes(r)
	gate.NewHandler(s.gate, s.config.SessionCookieName, s.config.SecureCookies).SetupRoutes(r)
	tables.NewHandler(s.tables, s.gate).SetupRoutes(r)
	directory.NewHandler(s.directory).SetupRoutes(r)

	// preflight requests end in the cors and auth middlewares
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Name("preflight")

	// all the rest - unhandled paths
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSONError(w, "Not found", http.StatusNotFound)
	}).Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.gate, s.config.SessionCookieName)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) metricsRouterSetup() *mux.Router {
	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", otelhttp.NewHandler(
		promhttp.InstrumentMetricHandler(
			s.promRegistry,
			promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		),
		"metrics",
	))
	return metricsRouter
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:           s.routerSetup(),
		Addr:              ipAndPort,
		WriteTimeout:      time.Minute,
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		ConnState:         s.connStateMetrics,
	}

	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           s.metricsRouterSetup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

// GracefulShutdown stops both listeners, then flushes telemetry and closes the db.
func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics server: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	log.Debugln("closing db ...")
	if closeErr := s.sqlDB.Close(); closeErr != nil {
		err = multierr.Append(err, fmt.Errorf("close db: %w", closeErr))
	}

	return err
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed, http.StateHijacked:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
