package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/caffeineduck/pagekit/hostfunc"
)

// Guests talk to the host over stderr. Every message is framed as
// \x00PAGEKIT<body>\x00 where body is one of:
//
//	:{json}      host function call, answered with one JSON line on stdin
//	_READY       session loop is waiting for commands
//	_DONE        session command finished
//	_ERROR:msg   session command failed
const (
	frameStart   = "\x00PAGEKIT"
	frameEnd     = '\x00'
	callPrefix   = ":"
	readySignal  = "_READY"
	doneSignal   = "_DONE"
	errorPrefix  = "_ERROR:"
	maxFrameSize = 16 << 20
)

var errFrameTooLarge = errors.New("protocol frame too large")

type callRequest struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

type callResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// protocol is the guest's stderr. Plain text is kept as stderr output while
// framed messages are dispatched. Calls are answered from their own goroutine
// because the guest reads the answer only after its stderr write returns.
type protocol struct {
	ctx      context.Context
	registry *hostfunc.Registry
	stdin    io.Writer

	mu     sync.Mutex
	buf    bytes.Buffer
	stderr bytes.Buffer
	ready  chan struct{}
	done   chan error
	isUp   bool

	writeMu sync.Mutex
	calls   sync.WaitGroup
}

func newProtocol(ctx context.Context, registry *hostfunc.Registry, stdin io.Writer) *protocol {
	return &protocol{
		ctx:      ctx,
		registry: registry,
		stdin:    stdin,
		ready:    make(chan struct{}),
		done:     make(chan error, 1),
	}
}

func (p *protocol) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)
	for p.next() {
	}
	if p.buf.Len() > maxFrameSize {
		p.buf.Reset()
		return len(data), errFrameTooLarge
	}
	return len(data), nil
}

// next consumes one frame from the buffer. It reports false when the buffer
// holds no complete frame.
func (p *protocol) next() bool {
	content := p.buf.String()

	start := strings.Index(content, frameStart)
	if start == -1 {
		keep := partialFrame(content)
		p.stderr.WriteString(content[:len(content)-keep])
		p.buf.Reset()
		p.buf.WriteString(content[len(content)-keep:])
		return false
	}
	p.stderr.WriteString(content[:start])

	rest := content[start+len(frameStart):]
	end := strings.IndexByte(rest, frameEnd)
	if end == -1 {
		p.buf.Reset()
		p.buf.WriteString(content[start:])
		return false
	}

	body := rest[:end]
	p.buf.Reset()
	p.buf.WriteString(rest[end+1:])
	p.dispatch(body)
	return true
}

func (p *protocol) dispatch(body string) {
	switch {
	case strings.HasPrefix(body, callPrefix):
		p.call(body[len(callPrefix):])
	case body == readySignal:
		if !p.isUp {
			p.isUp = true
			close(p.ready)
		}
	case body == doneSignal:
		p.finish(nil)
	case strings.HasPrefix(body, errorPrefix):
		p.finish(errors.New(body[len(errorPrefix):]))
	default:
		p.stderr.WriteString(frameStart + body)
	}
}

func (p *protocol) call(payload string) {
	var req callRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		p.calls.Add(1)
		go func() {
			defer p.calls.Done()
			p.respond(callResponse{Error: "invalid call format"})
		}()
		return
	}

	p.calls.Add(1)
	go func() {
		defer p.calls.Done()
		p.respond(p.execute(req))
	}()
}

func (p *protocol) execute(req callRequest) callResponse {
	fn, ok := p.registry.Get(req.Fn)
	if !ok {
		return callResponse{Error: "unknown function: " + req.Fn}
	}

	result, err := fn(p.ctx, req.Args)
	if err != nil {
		Logger().Debug("host call failed", zap.String("fn", req.Fn), zap.Error(err))
		return callResponse{Error: err.Error()}
	}
	return callResponse{Data: result}
}

func (p *protocol) respond(resp callResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"error":"internal: failed to marshal response"}`)
	}
	p.send(append(data, '\n'))
}

// send writes one line to the guest's stdin. Command and call responses
// share the pipe, so writes are serialized.
func (p *protocol) send(line []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.stdin.Write(line)
	return err
}

func (p *protocol) finish(err error) {
	select {
	case p.done <- err:
	default:
	}
}

func (p *protocol) Ready() <-chan struct{} {
	return p.ready
}

func (p *protocol) Done() <-chan error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Reset prepares for the next session command.
func (p *protocol) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = make(chan error, 1)
	p.stderr.Reset()
}

// Stderr returns the guest's stderr with protocol frames removed.
func (p *protocol) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stderr.String()
}

// Wait blocks until every dispatched call has been answered.
func (p *protocol) Wait() {
	p.calls.Wait()
}

// partialFrame returns the length of the longest suffix of s that could be
// the start of a frame split across writes.
func partialFrame(s string) int {
	for n := min(len(s), len(frameStart)-1); n > 0; n-- {
		if strings.HasSuffix(s, frameStart[:n]) {
			return n
		}
	}
	return 0
}
