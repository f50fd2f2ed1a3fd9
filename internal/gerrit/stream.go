package gerrit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

const (
	sshDialTimeout = 30 * time.Second
	maxEventSize   = 4 << 20
)

// EventSink receives decoded events, one at a time.
type EventSink interface {
	Dispatch(ctx context.Context, e *domain.Event) error
}

// StreamListener follows `gerrit stream-events` over ssh and feeds every
// supported event into the sink. A dropped stream is reopened after
// ReconnectDelay.
type StreamListener struct {
	config    *StreamConfig
	clientCfg *ssh.ClientConfig
	sink      EventSink
	logger    *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewStreamListener(cfg *StreamConfig, sink EventSink, log *logger.Logger) (*StreamListener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stream config: %w", err)
	}

	key, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}
	hostKeys, err := knownhosts.New(cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}

	return &StreamListener{
		config: cfg,
		clientCfg: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeys,
			Timeout:         sshDialTimeout,
		},
		sink:   sink,
		logger: log.Component("gerrit/stream"),
	}, nil
}

func (s *StreamListener) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return errors.New("stream listener already started")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)

	s.logger.Info("event stream listener started", "addr", s.config.Addr)
	return nil
}

func (s *StreamListener) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		s.logger.Info("event stream listener stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop stream listener: %w", ctx.Err())
	}
}

func (s *StreamListener) run(ctx context.Context) {
	defer close(s.done)

	for {
		err := s.streamOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("event stream interrupted, reconnecting",
			"error", err,
			"delay", s.config.ReconnectDelay,
		)

		select {
		case <-time.After(s.config.ReconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (s *StreamListener) streamOnce(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: sshDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.config.Addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, s.config.Addr, s.clientCfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake: %w", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attach stdout: %w", err)
	}
	if err := session.Start(streamCommand()); err != nil {
		return fmt.Errorf("start stream-events: %w", err)
	}

	// closing the client unblocks the reader below
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	s.logger.Info("event stream connected", "addr", s.config.Addr)

	return s.consume(ctx, stdout)
}

// consume reads one JSON event per line until r is exhausted. Decoding and
// handler errors are logged; they never end the stream.
func (s *StreamListener) consume(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		event, err := ParseEvent(line)
		switch {
		case errors.Is(err, domain.ErrUnsupportedEvent):
			continue
		case err != nil:
			s.logger.Warn("skipping undecodable event", "error", err)
			continue
		}

		if err := s.sink.Dispatch(ctx, event); err != nil {
			s.logger.Change(event.Change.Project, event.Change.Number, event.Change.Topic).
				Error("event processing failed", "type", string(event.Type), "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return io.EOF
}

func streamCommand() string {
	parts := []string{"gerrit", "stream-events"}
	for _, t := range StreamEventTypes {
		parts = append(parts, "-s", string(t))
	}
	return strings.Join(parts, " ")
}
