package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/pagekit/hostfunc"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSessionExited = errors.New("session exited")
)

const sessionStartTimeout = 30 * time.Second

// Session keeps one interpreter instance alive so globals, tables and
// canvases persist between runs.
type Session struct {
	lang Language
	cfg  runConfig

	ctx      context.Context
	cancel   context.CancelFunc
	stdin    *io.PipeWriter
	stdout   *sessionOutput
	protocol *protocol
	exited   chan struct{}
	exitErr  error

	mu     sync.Mutex
	execMu sync.Mutex
	closed bool
}

type execCommand struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
}

// NewSession starts an interpreter in command-loop mode and waits until it
// reports ready.
func (e *Executor) NewSession(lang Language, opts ...Option) (*Session, error) {
	cfg := newRunConfig(opts)
	cfg.env["PAGEKIT_SESSION"] = "1"

	ctx, cancel := context.WithCancel(context.Background())
	compiled, err := e.getCompiled(ctx, lang)
	if err != nil {
		cancel()
		return nil, err
	}

	stdinReader, stdinWriter := io.Pipe()
	s := &Session{
		lang:   lang,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		stdin:  stdinWriter,
		stdout: &sessionOutput{},
		exited: make(chan struct{}),
	}
	s.protocol = newProtocol(ctx, e.registryFor(cfg), stdinWriter)

	moduleConfig := e.moduleConfig(cfg, lang.Args(lang.SessionInit()+lang.WrapCode(""))).
		WithStdout(s.stdout).
		WithStderr(s.protocol).
		WithStdin(stdinReader)

	go func() {
		mod, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
		if mod != nil {
			mod.Close(context.Background())
		}
		if err == nil {
			err = ErrSessionExited
		}
		s.exitErr = err
		close(s.exited)
		stdinReader.Close()
	}()

	select {
	case <-s.protocol.Ready():
		Logger().Debug("session ready", zap.String("lang", lang.Name()))
		return s, nil
	case <-s.exited:
		s.Close()
		return nil, fmt.Errorf("start session: %w: %s", s.exitErr, s.protocol.Stderr())
	case <-time.After(sessionStartTimeout):
		s.Close()
		return nil, errors.New("session start timeout")
	}
}

// Page returns the page the session draws on.
func (s *Session) Page() *hostfunc.Page {
	return s.cfg.page
}

// Storage returns the session's storage.
func (s *Session) Storage() *hostfunc.Storage {
	return s.cfg.storage
}

// Run executes code in the session. Runs are serialized. A run that times
// out closes the session since the interpreter cannot be interrupted.
func (s *Session) Run(ctx context.Context, code string) Result {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	start := time.Now()
	if s.isClosed() {
		return Result{Error: ErrSessionClosed, Duration: time.Since(start)}
	}

	if s.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.timeout)
		defer cancel()
	}

	s.stdout.Reset()
	s.protocol.Reset()
	done := s.protocol.Done()

	cmd, _ := json.Marshal(execCommand{Type: "exec", Code: code})
	if err := s.protocol.send(append(cmd, '\n')); err != nil {
		return Result{Error: fmt.Errorf("write command: %w", err), Duration: time.Since(start)}
	}

	result := func(err error) Result {
		return Result{
			Output:   s.stdout.String() + s.protocol.Stderr(),
			Error:    err,
			Duration: time.Since(start),
		}
	}

	select {
	case execErr := <-done:
		return result(execErr)
	case <-s.exited:
		return result(s.exitErr)
	case <-ctx.Done():
		s.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result(fmt.Errorf("timeout after %v", s.cfg.timeout))
		}
		return result(ctx.Err())
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the interpreter. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.stdin.Close()
	s.cancel()
	return nil
}

type sessionOutput struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (o *sessionOutput) Write(data []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Write(data)
}

func (o *sessionOutput) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}

func (o *sessionOutput) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buf.Reset()
}
