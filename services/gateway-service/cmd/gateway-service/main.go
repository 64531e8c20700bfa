package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/md-rashed-zaman/visadesk/libs/auth"
	"github.com/md-rashed-zaman/visadesk/libs/config"
	"github.com/md-rashed-zaman/visadesk/libs/grpcx"
	"github.com/md-rashed-zaman/visadesk/libs/httpx"
	otelx "github.com/md-rashed-zaman/visadesk/libs/otel"
	"github.com/md-rashed-zaman/visadesk/libs/runtime"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Headers the gateway derives from a verified token. Inbound copies are discarded.
const applicationIDHeader = "X-Application-Id"

var identityHeaders = []string{httpx.UserIDHeader, httpx.RoleHeader, applicationIDHeader}

type verifier struct {
	secret string
	jwks   *auth.JWKSClient
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "gateway-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
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
	if addr := strings.TrimSpace(config.String("BIOMETRICS_GRPC_ADDR", "")); addr != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "biometrics", Check: grpcx.HealthReadyCheck(addr, "")})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	v := verifier{secret: config.String("JWT_SECRET", "dev-secret")}
	if jwksURL := config.String("JWKS_URL", ""); jwksURL != "" {
		v.jwks = auth.NewJWKSClient(jwksURL, config.Duration("JWKS_CACHE_SECONDS", 5*time.Minute))
	}

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := config.Int("REDIS_DB", 0)
		if redisDB < 0 {
			redisDB = 0
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	biometricsURL := mustParseURL(config.String("BIOMETRICS_URL", "http://biometrics-service:8090"))
	registerRoutes(mux, biometricsURL, v, rateLimitMW)

	handler := httpx.Chain(mux,
		stripIdentityHeaders,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   listOr("CORS_ALLOWED_METHODS", "GET", "POST", "OPTIONS"),
			AllowedHeaders:   listOr("CORS_ALLOWED_HEADERS", "Authorization", "Content-Type", "X-Request-Id"),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT_SECONDS", 20*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "gateway")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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

func listOr(key string, fallback ...string) []string {
	if v := config.List(key); len(v) > 0 {
		return v
	}
	return fallback
}

// registerRoutes proxies the scheduling and admin APIs. Rate limiting runs after
// authentication so applicants are limited by user id rather than by shared IPs.
func registerRoutes(mux *http.ServeMux, biometricsURL *url.URL, v verifier, limit httpx.Middleware) {
	proxy := httputil.NewSingleHostReverseProxy(biometricsURL)
	proxy.Transport = otelhttp.NewTransport(http.DefaultTransport)

	limited := http.Handler(proxy)
	if limit != nil {
		limited = limit(proxy)
	}

	registerProxy(mux, "/api/v1/biometrics", requireAuth(limited, v))
	registerProxy(mux, "/api/v1/admin", requireAuth(requireRole(limited, auth.RoleAdmin), v))
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		mux.Handle(prefix, handler)
		mux.Handle(prefix+"/", handler)
		return
	}
	mux.Handle(prefix, handler)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func stripIdentityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range identityHeaders {
			r.Header.Del(h)
		}
		next.ServeHTTP(w, r)
	})
}

func (v verifier) verify(token string) (*auth.Claims, error) {
	if v.jwks == nil {
		return auth.ParseAndVerifyHS256(token, v.secret)
	}
	header, err := auth.ParseHeader(token)
	if err != nil {
		return nil, err
	}
	if header.Alg == "RS256" && header.Kid != "" {
		pub, err := v.jwks.Get(header.Kid)
		if err != nil {
			return nil, err
		}
		return auth.VerifyRS256(token, pub)
	}
	return auth.ParseAndVerifyHS256(token, v.secret)
}

func requireAuth(next http.Handler, v verifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := v.verify(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		if err != nil || claims == nil || claims.Sub == "" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		for _, h := range identityHeaders {
			r.Header.Del(h)
		}
		r.Header.Set(httpx.UserIDHeader, claims.Sub)
		r.Header.Set(httpx.RoleHeader, claims.Role)
		if claims.ApplicationID != "" {
			r.Header.Set(applicationIDHeader, claims.ApplicationID)
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(next http.Handler, roles ...string) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get(httpx.RoleHeader)
		if _, ok := allowed[role]; !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
