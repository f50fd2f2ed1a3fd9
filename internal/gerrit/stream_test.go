package gerrit

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*domain.Event
	err    error
}

func (s *recordingSink) Dispatch(_ context.Context, e *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func TestStreamListener_Consume(t *testing.T) {
	sink := &recordingSink{err: errors.New("handler failed")}
	l := &StreamListener{
		config: &StreamConfig{ReconnectDelay: time.Second},
		sink:   sink,
		logger: logger.NewDiscard(),
	}

	stream := strings.Join([]string{
		`{"type":"patchset-created","change":{"project":"p","number":1,"topic":"t"},"uploader":{"email":"dev@x"}}`,
		``,
		`{"type":"ref-updated","refUpdate":{"project":"p"}}`,
		`{"type":"comment-added",`,
		`{"type":"comment-added","change":{"project":"p","number":2},"author":{"email":"dev@x"}}`,
	}, "\n")

	err := l.consume(t.Context(), strings.NewReader(stream))
	assert.ErrorIs(t, err, io.EOF)

	require.Len(t, sink.events, 2)
	assert.Equal(t, domain.EventPatchSetCreated, sink.events[0].Type)
	assert.Equal(t, 2, sink.events[1].Change.Number)
}

func TestStreamListener_ConsumeOversizedLine(t *testing.T) {
	l := &StreamListener{
		config: &StreamConfig{ReconnectDelay: time.Second},
		sink:   &recordingSink{},
		logger: logger.NewDiscard(),
	}

	err := l.consume(t.Context(), strings.NewReader(strings.Repeat("x", maxEventSize+1)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestStreamCommand(t *testing.T) {
	assert.Equal(t,
		"gerrit stream-events -s topic-changed -s patchset-created -s comment-added",
		streamCommand())
}

func TestStreamConfig_Validate(t *testing.T) {
	valid := StreamConfig{
		Addr:           "review.example.com:29418",
		User:           "automerge",
		KeyFile:        "/etc/automerge/id_ed25519",
		KnownHosts:     "/etc/automerge/known_hosts",
		ReconnectDelay: 10 * time.Second,
	}
	require.NoError(t, valid.Validate())

	noPort := valid
	noPort.Addr = "review.example.com"
	assert.Error(t, noPort.Validate())

	noUser := valid
	noUser.User = ""
	assert.Error(t, noUser.Validate())

	fastReconnect := valid
	fastReconnect.ReconnectDelay = time.Millisecond
	assert.Error(t, fastReconnect.Validate())
}

func TestNewStreamListener_MissingKey(t *testing.T) {
	cfg := &StreamConfig{
		Addr:           "review.example.com:29418",
		User:           "automerge",
		KeyFile:        t.TempDir() + "/missing",
		KnownHosts:     t.TempDir() + "/known_hosts",
		ReconnectDelay: time.Second,
	}

	_, err := NewStreamListener(cfg, &recordingSink{}, logger.NewDiscard())
	assert.ErrorContains(t, err, "read ssh key")
}

func TestStreamListener_StopWithoutStart(t *testing.T) {
	l := &StreamListener{logger: logger.NewDiscard()}
	assert.NoError(t, l.Stop(t.Context()))
}
