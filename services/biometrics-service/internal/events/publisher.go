package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visadesk/libs/kafkax"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/workflow"
	"github.com/segmentio/kafka-go"
)

// Topic names equal the event type.
const (
	EventBooked = "biometrics.appointment.booked.v1"
	EventFailed = "biometrics.appointment.failed.v1"
)

type Payload struct {
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	Location      string    `json:"location"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits one event per settled submission. Failures are logged and dropped;
// they never reach the applicant.
type Publisher struct {
	writer  Writer
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewPublisher(brokers string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	list := kafkax.SplitBrokers(brokers)
	if len(list) == 0 {
		logger.Warn("booking events disabled (no kafka brokers configured)")
		return NewPublisherWithWriter(nil, logger)
	}
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(list...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, logger)
}

func NewPublisherWithWriter(w Writer, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{writer: w, logger: logger, timeout: 5 * time.Second, now: time.Now}
}

func (p *Publisher) Enabled() bool { return p.writer != nil }

// Observe is a page transition hook. Only transitions into Settled produce events,
// and they are written in the background.
func (p *Publisher) Observe(userID string, t workflow.Transition) {
	if !p.Enabled() || t.To != workflow.StateSettled || t.Settlement == nil {
		return
	}
	eventType, payload := p.build(userID, t)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, eventType, userID, payload); err != nil {
			p.logger.Error("booking event publish failed", "event_type", eventType, "user_id", userID, "err", err)
		}
	}()
}

func (p *Publisher) build(userID string, t workflow.Transition) (string, Payload) {
	s := t.Settlement
	payload := Payload{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Location:   string(t.Draft.Location),
		Date:       t.Draft.Date,
		Time:       t.Draft.Time,
		OccurredAt: p.now().UTC(),
	}
	if s.Outcome == workflow.OutcomeSuccess && s.Appointment != nil {
		payload.AppointmentID = s.Appointment.ID
		payload.Location = string(s.Appointment.Location)
		payload.Date = s.Appointment.Date
		payload.Time = s.Appointment.Time
		payload.Status = s.Appointment.Status
		return EventBooked, payload
	}
	payload.Reason = s.Message
	return EventFailed, payload
}

func (p *Publisher) Publish(ctx context.Context, eventType, key string, payload Payload) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkax.NewEventMessage(ctx, eventType, payload.EventID, key, body))
}

// Close waits for in-flight publishes and closes the writer.
func (p *Publisher) Close() error {
	p.wg.Wait()
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
