package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublishJoined(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	w := &recordingWriter{}
	k := &Kafka{writer: w}

	ev := Joined{Email: "a@test.com", Domain: "test.com", JoinedAt: 1_760_000_000_000, Source: "signpost.cv"}
	require.NoError(k.PublishJoined(context.Background(), ev))
	require.Len(w.msgs, 1)
	require.Equal("test.com", string(w.msgs[0].Key))
	require.EqualValues(1_760_000_000_000, w.msgs[0].Time.UnixMilli())

	var got Joined
	require.NoError(json.Unmarshal(w.msgs[0].Value, &got))
	require.Equal(ev, got)
}

func TestKafkaPublishJoinedError(t *testing.T) {
	t.Parallel()

	k := &Kafka{writer: &recordingWriter{err: errors.New("broker down")}}
	err := k.PublishJoined(context.Background(), Joined{Email: "a@test.com", Domain: "test.com"})
	require.ErrorContains(t, err, "broker down")
}

func TestNewKafkaDefaultsTopic(t *testing.T) {
	t.Parallel()

	k := NewKafka([]string{"localhost:9092"}, "")
	w, ok := k.writer.(*kafka.Writer)
	require.True(t, ok)
	require.Equal(t, DefaultTopic, w.Topic)
	require.NoError(t, k.Close())
}
