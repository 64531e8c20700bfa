package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/visadesk/libs/httpx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	appointmentsPath     = "/biometrics/appointments"
	maxResponseBytes     = 1 << 20
	IdempotencyKeyHeader = "Idempotency-Key"
)

type ctxKey int

const ctxKeyBearer ctxKey = iota

// WithBearerToken attaches the applicant's token so calls are made on their behalf.
func WithBearerToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyBearer, token)
}

func bearerToken(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyBearer).(string)
	return v
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// HTTPClient talks to the appointment service's REST API. It never retries.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *HTTPClient) List(ctx context.Context) ([]Appointment, error) {
	var env envelope[[]Appointment]
	if err := c.do(ctx, "list", http.MethodGet, nil, "", &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []Appointment{}, nil
	}
	return env.Data, nil
}

func (c *HTTPClient) Create(ctx context.Context, req Request, idempotencyKey string) (Appointment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Appointment{}, &Failure{Op: "create", Err: err}
	}
	var env envelope[*Appointment]
	if err := c.do(ctx, "create", http.MethodPost, body, idempotencyKey, &env); err != nil {
		return Appointment{}, err
	}
	if env.Data == nil {
		return Appointment{}, &Failure{Op: "create", Message: env.Message, Err: fmt.Errorf("response carried no appointment")}
	}
	return *env.Data, nil
}

// do performs one request and decodes the {success, data, message} envelope into out.
func (c *HTTPClient) do(ctx context.Context, op, method string, body []byte, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+appointmentsPath, reader)
	if err != nil {
		return &Failure{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyKeyHeader, idempotencyKey)
	}
	if token := bearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(httpx.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Failure{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Failure{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var status struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeErr := json.Unmarshal(raw, &status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Failure{Op: op, StatusCode: resp.StatusCode, Message: status.Message}
	}
	if decodeErr != nil {
		return &Failure{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if !status.Success {
		return &Failure{Op: op, StatusCode: resp.StatusCode, Message: status.Message}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Failure{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
