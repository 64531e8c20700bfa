package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/visadesk/libs/config"
	"github.com/md-rashed-zaman/visadesk/libs/db"
	"github.com/md-rashed-zaman/visadesk/libs/httpx"
	"github.com/md-rashed-zaman/visadesk/libs/kafkax"
	otelx "github.com/md-rashed-zaman/visadesk/libs/otel"
	"github.com/md-rashed-zaman/visadesk/libs/runtime"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/appointments"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/eligibility"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/events"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/gate"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/handlers"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/listing"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/metrics"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/page"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/session"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/workflow"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "time/tzdata"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	s, err := loadSettings()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(s.Service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(s.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var readyChecks []runtime.ReadyCheck
	if s.KafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(s.KafkaBrokers)})
	}

	var source gate.Source
	switch s.PaymentSource {
	case "postgres":
		pool, err := db.Open(ctx, s.DatabaseURL, db.Options{MaxConns: int32(s.DBMaxConns)})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
		source = gate.NewPostgresSource(pool)
	case "stripe":
		source, err = gate.NewStripeSource(s.StripeSecretKey, s.StripeMetadataKey)
		if err != nil {
			panic(err)
		}
	default:
		logger.Warn("payment gate uses a static answer", "completed", s.StaticCompleted)
		source = gate.StaticSource{Completed: s.StaticCompleted}
	}

	if s.RedisAddr != "" && s.PaymentSource != "static" {
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		source = gate.NewCachedSource(source, rdb, s.PaymentCacheTTL, logger)
	}

	m := metrics.NewSchedulingMetrics(nil)
	publisher := events.NewPublisher(s.KafkaBrokers, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("event publisher close failed", "err", err)
		}
	}()

	repo := appointments.NewHTTPClient(s.AppointmentsURL, s.AppointmentsTimeout)
	deps := &page.Deps{
		Gate:          gate.NewPolicy(source, logger, s.GateTimeout).WithObserver(m.ObserveGate),
		Repo:          repo,
		Dates:         eligibility.NewChecker(s.Rule, s.Timezone),
		SubmitTimeout: s.SubmitTimeout,
		PaymentURL:    s.PaymentURL,
		Logger:        logger,
		Hooks: page.Hooks{
			ListLoaded: m.ObserveListLoad,
			Transition: func(userID string, t workflow.Transition) {
				m.ObserveTransition(userID, t)
				publisher.Observe(userID, t)
			},
		},
	}
	logger.Info("scheduling rules",
		"timezone", s.Timezone.String(),
		"open_days", s.Rule.String(),
		"payment_source", s.PaymentSource,
	)

	sessions := session.NewStore(s.SessionIdleTTL, logger)
	go sessions.Run(ctx, time.Minute)

	if err := startGrpcServer(ctx, logger, s.GrpcPort); err != nil {
		logger.Error("grpc server failed to start", "err", err)
		panic(err)
	}

	biometricsHandler := handlers.NewBiometricsHandler(deps, sessions, listing.NewService(repo, logger), m, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", m.Handler())
	biometricsHandler.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(64<<10),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "biometrics")
	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
