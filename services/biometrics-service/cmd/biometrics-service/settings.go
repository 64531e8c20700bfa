package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/visadesk/libs/config"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/eligibility"
)

type settings struct {
	Service             string
	Port                string
	GrpcPort            string
	AppointmentsURL     string
	AppointmentsTimeout time.Duration
	SubmitTimeout       time.Duration
	GateTimeout         time.Duration
	PaymentSource       string
	DatabaseURL         string
	DBMaxConns          int
	StripeSecretKey     string
	StripeMetadataKey   string
	StaticCompleted     bool
	RedisAddr           string
	PaymentCacheTTL     time.Duration
	KafkaBrokers        string
	Timezone            *time.Location
	Rule                eligibility.Rule
	PaymentURL          string
	SessionIdleTTL      time.Duration
}

func loadSettings() (settings, error) {
	s := settings{
		Service:             config.String("SERVICE_NAME", "biometrics-service"),
		AppointmentsTimeout: config.Duration("APPOINTMENTS_TIMEOUT", 10*time.Second),
		SubmitTimeout:       config.Duration("SUBMIT_TIMEOUT", 15*time.Second),
		GateTimeout:         config.Duration("PAYMENT_TIMEOUT", 3*time.Second),
		PaymentSource:       strings.ToLower(config.String("PAYMENT_SOURCE", "static")),
		DatabaseURL:         config.String("DATABASE_URL", ""),
		DBMaxConns:          config.Int("DB_MAX_CONNS", 5),
		StripeSecretKey:     config.String("STRIPE_SECRET_KEY", ""),
		StripeMetadataKey:   config.String("STRIPE_METADATA_USER_KEY", "user_id"),
		StaticCompleted:     config.Bool("PAYMENT_STATIC_COMPLETED", true),
		RedisAddr:           config.String("REDIS_ADDR", ""),
		PaymentCacheTTL:     config.Duration("PAYMENT_CACHE_TTL", 10*time.Minute),
		KafkaBrokers:        config.String("KAFKA_BROKERS", ""),
		PaymentURL:          config.String("BIOMETRICS_PAYMENT_URL", "/payments"),
		SessionIdleTTL:      config.Duration("SESSION_IDLE_TTL", 30*time.Minute),
	}

	var err error
	if s.Port, err = config.Port("PORT", "8090"); err != nil {
		return s, err
	}
	if s.GrpcPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
		return s, err
	}
	if s.AppointmentsURL, err = config.RequiredString("APPOINTMENTS_API_URL"); err != nil {
		return s, err
	}

	tz := config.String("BIOMETRICS_TIMEZONE", "Africa/Lagos")
	if s.Timezone, err = time.LoadLocation(tz); err != nil {
		return s, fmt.Errorf("BIOMETRICS_TIMEZONE: %w", err)
	}
	s.Rule = eligibility.MondayToFriday
	if config.Bool("BIOMETRICS_OPEN_SATURDAY", false) {
		s.Rule = eligibility.MondayToSaturday
	}

	switch s.PaymentSource {
	case "static":
	case "postgres":
		if s.DatabaseURL == "" {
			return s, fmt.Errorf("DATABASE_URL is required when PAYMENT_SOURCE=postgres")
		}
	case "stripe":
		if s.StripeSecretKey == "" {
			return s, fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_SOURCE=stripe")
		}
	default:
		return s, fmt.Errorf("PAYMENT_SOURCE must be one of static, postgres, stripe (got %q)", s.PaymentSource)
	}
	return s, nil
}
