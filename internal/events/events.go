package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/pkg/kafka"
	"github.com/google/uuid"
)

// Event types double as topic names under the configured prefix
const (
	TypePostCreated        = "post.created"
	TypeFollowCreated      = "follow.created"
	TypeTicketPurchased    = "ticket.purchased"
	TypeReservationDecided = "reservation.decided"
)

// Event is one domain fact published after its transaction committed
type Event struct {
	Type       string
	Key        string // partition key, keeps one aggregate's events ordered
	OccurredAt time.Time
	Data       any
}

// Publisher fans committed domain events out to other systems
type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
}

type PostCreated struct {
	PostID      string             `json:"post_id"`
	FeedID      string             `json:"feed_id"`
	Owner       domain.Owner       `json:"owner"`
	ContentType domain.ContentType `json:"content_type"`
}

type FollowCreated struct {
	FollowerID string       `json:"follower_id"`
	Target     domain.Owner `json:"target"`
}

type TicketPurchased struct {
	TicketID  string `json:"ticket_id"`
	EventID   string `json:"event_id"`
	ClubID    string `json:"club_id"`
	ProfileID string `json:"profile_id"`
	PricePaid string `json:"price_paid"`
}

type ReservationDecided struct {
	ReservationID string                   `json:"reservation_id"`
	EventID       string                   `json:"event_id"`
	ClubID        string                   `json:"club_id"`
	Status        domain.ReservationStatus `json:"status"`
	ActorID       string                   `json:"actor_id"`
	Reason        string                   `json:"reason,omitempty"`
}

// envelope is the wire shape of every message value
type envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// MessageProducer is the slice of *kafka.Producer the publisher needs
type MessageProducer interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher encodes events as JSON envelopes, one topic per event type
type KafkaPublisher struct {
	producer MessageProducer
}

func NewKafkaPublisher(producer MessageProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evs ...Event) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		msg, err := encode(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.producer.Publish(ctx, msgs...)
}

func encode(ev Event) (kafka.Message, error) {
	env := envelope{
		ID:         uuid.New().String(),
		Type:       ev.Type,
		OccurredAt: ev.OccurredAt.UTC(),
		Data:       ev.Data,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return kafka.Message{
		Topic: ev.Type,
		Key:   ev.Key,
		Value: value,
		Headers: map[string]string{
			"event-id":   env.ID,
			"event-type": ev.Type,
		},
	}, nil
}

// NopPublisher drops events; used when Kafka is disabled
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, evs ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evs...)
	return nil
}

// Events returns a snapshot of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters the snapshot by event type
func (r *Recorder) OfType(typ string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
