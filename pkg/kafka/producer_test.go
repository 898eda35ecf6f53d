package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicName(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"noctra", "post.created", "noctra.post.created"},
		{"noctra.", "post.created", "noctra.post.created"},
		{"", "post.created", "post.created"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TopicName(tt.prefix, tt.name))
	}
}

func TestToRecord(t *testing.T) {
	rec := toRecord("noctra.ticket.purchased", Message{
		Key:     "event-1",
		Value:   []byte(`{"ticket_id":"t1"}`),
		Headers: map[string]string{"event_type": "ticket.purchased"},
	})

	assert.Equal(t, "noctra.ticket.purchased", rec.Topic)
	assert.Equal(t, []byte("event-1"), rec.Key)
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "event_type", rec.Headers[0].Key)
	assert.Equal(t, []byte("ticket.purchased"), rec.Headers[0].Value)

	assert.Nil(t, toRecord("t", Message{}).Key)
}

func TestNewProducerWithoutBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), &ProducerConfig{})
	assert.Error(t, err)
}
