package gate

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	otelx "github.com/md-rashed-zaman/visadesk/libs/otel"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSource reads the visa_payments table owned by the payments service.
type PostgresSource struct {
	db querier
}

func NewPostgresSource(db querier) *PostgresSource {
	return &PostgresSource{db: db}
}

const completedPaymentQuery = `
	SELECT EXISTS (
		SELECT 1 FROM visa_payments
		WHERE user_id = $1 AND status = 'completed'
	)`

func (s *PostgresSource) HasCompletedPayment(ctx context.Context, userID string) (completed bool, err error) {
	ctx, span := otelx.Tracer("gate").Start(ctx, "gate.postgres")
	defer func() { otelx.EndSpan(span, err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, errors.New("missing user id")
	}
	err = s.db.QueryRow(ctx, completedPaymentQuery, userID).Scan(&completed)
	return completed, err
}
