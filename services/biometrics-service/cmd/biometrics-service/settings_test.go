package main

import (
	"testing"

	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/eligibility"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"PORT":                     "",
		"GRPC_PORT":                "",
		"APPOINTMENTS_API_URL":     "http://appointments.local/api",
		"PAYMENT_SOURCE":           "",
		"DATABASE_URL":             "",
		"STRIPE_SECRET_KEY":        "",
		"BIOMETRICS_TIMEZONE":      "",
		"BIOMETRICS_OPEN_SATURDAY": "",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	setBaseEnv(t)
	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Port != "8090" || s.GrpcPort != "9090" {
		t.Fatalf("unexpected ports %s/%s", s.Port, s.GrpcPort)
	}
	if s.Timezone.String() != "Africa/Lagos" {
		t.Fatalf("unexpected timezone %s", s.Timezone)
	}
	if s.Rule != eligibility.MondayToFriday {
		t.Fatalf("expected Mon–Fri by default, got %s", s.Rule)
	}
	if s.PaymentSource != "static" || !s.StaticCompleted {
		t.Fatalf("unexpected payment source %q completed=%v", s.PaymentSource, s.StaticCompleted)
	}
}

func TestLoadSettingsSaturdayRule(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BIOMETRICS_OPEN_SATURDAY", "true")
	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Rule != eligibility.MondayToSaturday {
		t.Fatalf("expected Mon–Sat, got %s", s.Rule)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing api url":      {"APPOINTMENTS_API_URL": ""},
		"postgres without url": {"PAYMENT_SOURCE": "postgres"},
		"stripe without key":   {"PAYMENT_SOURCE": "stripe"},
		"unknown source":       {"PAYMENT_SOURCE": "paypal"},
		"bad timezone":         {"BIOMETRICS_TIMEZONE": "Mars/Olympus"},
		"bad port":             {"PORT": "99999"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := loadSettings(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
