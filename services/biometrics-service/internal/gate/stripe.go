package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	otelx "github.com/md-rashed-zaman/visadesk/libs/otel"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

type paymentIntentIter interface {
	Next() bool
	PaymentIntent() *stripe.PaymentIntent
	Err() error
}

// StripeSource treats a succeeded PaymentIntent tagged with the applicant's id in its
// metadata as a completed payment.
type StripeSource struct {
	metadataKey string
	search      func(*stripe.PaymentIntentSearchParams) paymentIntentIter
}

func NewStripeSource(secretKey, metadataKey string) (*StripeSource, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	client := &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
	return newStripeSource(metadataKey, func(p *stripe.PaymentIntentSearchParams) paymentIntentIter {
		return client.Search(p)
	}), nil
}

func newStripeSource(metadataKey string, search func(*stripe.PaymentIntentSearchParams) paymentIntentIter) *StripeSource {
	if strings.TrimSpace(metadataKey) == "" {
		metadataKey = "user_id"
	}
	return &StripeSource{metadataKey: metadataKey, search: search}
}

func (s *StripeSource) HasCompletedPayment(ctx context.Context, userID string) (completed bool, err error) {
	ctx, span := otelx.Tracer("gate").Start(ctx, "gate.stripe")
	defer func() { otelx.EndSpan(span, err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, errors.New("missing user id")
	}

	params := &stripe.PaymentIntentSearchParams{}
	params.Context = ctx
	params.Query = s.query(userID)
	params.Single = true
	params.Limit = stripe.Int64(1)

	it := s.search(params)
	for it.Next() {
		pi := it.PaymentIntent()
		if pi != nil && pi.Status == stripe.PaymentIntentStatusSucceeded {
			return true, nil
		}
	}
	if err := it.Err(); err != nil {
		return false, fmt.Errorf("stripe payment intent search: %w", err)
	}
	return false, nil
}

func (s *StripeSource) query(userID string) string {
	escaped := strings.ReplaceAll(userID, `'`, `\'`)
	return fmt.Sprintf("status:'succeeded' AND metadata['%s']:'%s'", s.metadataKey, escaped)
}
