package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/pagekit/bootstrap"
	"github.com/caffeineduck/pagekit/executor"
	"github.com/caffeineduck/pagekit/hostfunc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for page execution",
	Long: `Start an HTTP server that serves the page shell and runs page code.

Endpoints:
  GET    /                     Page shell for the runtime named by ?runtime=
  POST   /execute              Execute code (stateless), returns output and page
  POST   /sessions             Create session, returns {"session_id":"..."}
  POST   /sessions/{id}/exec   Execute in session (state persists)
  GET    /sessions/{id}/page   Tables and canvases of the session
  DELETE /sessions/{id}        Close session
  GET    /health               Health check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Duration("session-ttl", 15*time.Minute, "Idle time before a session is closed")
	addPageFlags(serveCmd, "query")
	rootCmd.AddCommand(serveCmd)
}

type sessionManager struct {
	sessions map[string]*serverSession
	mu       sync.RWMutex
	ttl      time.Duration
}

type serverSession struct {
	session  *executor.Session
	lastUsed time.Time
}

func newSessionManager(ttl time.Duration) *sessionManager {
	return &sessionManager{
		sessions: make(map[string]*serverSession),
		ttl:      ttl,
	}
}

func (sm *sessionManager) create(exec *executor.Executor, lang executor.Language, opts ...executor.Option) (string, error) {
	session, err := exec.NewSession(lang, opts...)
	if err != nil {
		return "", err
	}

	id := generateSessionID()
	sm.mu.Lock()
	sm.sessions[id] = &serverSession{
		session:  session,
		lastUsed: time.Now(),
	}
	sm.mu.Unlock()
	return id, nil
}

func (sm *sessionManager) get(id string) (*executor.Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	ss, ok := sm.sessions[id]
	if !ok {
		return nil, false
	}
	ss.lastUsed = time.Now()
	return ss.session, true
}

func (sm *sessionManager) close(id string) bool {
	sm.mu.Lock()
	ss, ok := sm.sessions[id]
	if ok {
		ss.session.Close()
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	return ok
}

// expire closes sessions idle for longer than the ttl and returns how many
// it closed.
func (sm *sessionManager) expire(now time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	n := 0
	for id, ss := range sm.sessions {
		if now.Sub(ss.lastUsed) > sm.ttl {
			ss.session.Close()
			delete(sm.sessions, id)
			n++
		}
	}
	return n
}

func (sm *sessionManager) cleanup(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sm.expire(now); n > 0 {
				logger().Info("expired sessions", zap.Int("count", n))
			}
		}
	}
}

func (sm *sessionManager) closeAll() {
	sm.mu.Lock()
	for id, ss := range sm.sessions {
		ss.session.Close()
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
}

func (sm *sessionManager) len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func generateSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

type executeRequest struct {
	Code    string `json:"code"`
	Runtime string `json:"runtime,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

type executeResponse struct {
	Output     string `json:"output"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Page       any    `json:"page,omitempty"`
}

type createSessionRequest struct {
	Runtime string `json:"runtime,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Runtime   string `json:"runtime"`
}

type sessionExecRequest struct {
	Code    string `json:"code"`
	Timeout string `json:"timeout,omitempty"`
}

// server holds the state shared by the HTTP handlers.
type server struct {
	exec     *executor.Executor
	manifest bootstrap.Manifest
	mode     bootstrap.Mode
	sessions *sessionManager
	runOpts  []executor.Option
	pageOpts []hostfunc.PageOption
	timeout  time.Duration
}

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>pagekit</title>
{{.Script}}
</head>
<body>
<a id="runtime-toggle" href="{{.Toggle}}">{{.Label}}</a>
</body>
</html>
`))

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleShell)
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("POST /sessions/{id}/exec", s.handleSessionExec)
	mux.HandleFunc("GET /sessions/{id}/page", s.handleSessionPage)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// backend resolves a runtime token; empty selects the manifest default.
func (s *server) backend(token string) (bootstrap.Backend, executor.Language, error) {
	if token == "" {
		token = s.manifest.Default
	}
	b, ok := s.manifest.Backend(token)
	if !ok {
		return bootstrap.Backend{}, nil, fmt.Errorf("runtime %q: %w", token, bootstrap.ErrUnknownRuntime)
	}
	lang, err := languageFor(b)
	return b, lang, err
}

func (s *server) handleShell(w http.ResponseWriter, r *http.Request) {
	sel, err := s.manifest.Select(r.URL.RequestURI(), s.mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = shellTemplate.Execute(w, struct {
		Script template.HTML
		Toggle string
		Label  string
	}{
		Script: template.HTML(sel.ScriptTag()),
		Toggle: sel.Toggle(),
		Label:  sel.ToggleLabel(),
	})
	if err != nil {
		logger().Warn("render shell", zap.Error(err))
	}
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "code required", http.StatusBadRequest)
		return
	}

	_, lang, err := s.backend(req.Runtime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	execTimeout := s.timeout
	if req.Timeout != "" {
		if d, err := time.ParseDuration(req.Timeout); err == nil {
			execTimeout = d
		}
	}

	page := hostfunc.NewPage(s.pageOpts...)
	result := s.exec.Run(r.Context(), lang, req.Code,
		s.sessionOpts(executor.WithTimeout(execTimeout), executor.WithPage(page))...)
	resp := executeResponse{
		Output:     result.Output,
		DurationMs: result.Duration.Milliseconds(),
		Page:       page.Snapshot(),
	}
	if result.Error != nil {
		resp.Error = result.Error.Error()
	}
	writeJSON(w, resp)
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	b, lang, err := s.backend(req.Runtime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID, err := s.sessions.create(s.exec, lang, s.sessionOpts()...)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to create session: %v", err), http.StatusInternalServerError)
		return
	}
	logger().Info("session created", zap.String("id", sessionID), zap.String("runtime", b.Token))
	writeJSON(w, createSessionResponse{SessionID: sessionID, Runtime: b.Token})
}

func (s *server) handleSessionExec(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req sessionExecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "code required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if req.Timeout != "" {
		if d, err := time.ParseDuration(req.Timeout); err == nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	result := session.Run(ctx, req.Code)
	resp := executeResponse{
		Output:     result.Output,
		DurationMs: result.Duration.Milliseconds(),
	}
	if result.Error != nil {
		resp.Error = result.Error.Error()
	}
	writeJSON(w, resp)
}

func (s *server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, session.Page().Snapshot())
}

func (s *server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions.close(r.PathValue("id")) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Error(w, "session not found", http.StatusNotFound)
}

func (s *server) sessionOpts(extra ...executor.Option) []executor.Option {
	opts := make([]executor.Option, 0, len(s.runOpts)+len(extra))
	opts = append(opts, s.runOpts...)
	return append(opts, extra...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Warn("write response", zap.Error(err))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	ttl, _ := cmd.Flags().GetDuration("session-ttl")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	modeName, _ := cmd.Flags().GetString("mode")
	memory, _ := cmd.Flags().GetString("memory")

	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	mode, err := bootstrap.ParseMode(modeName)
	if err != nil {
		return err
	}

	var precompile []executor.Language
	if b, ok := m.Backend(m.Default); ok {
		if lang, err := languageFor(b); err == nil {
			precompile = append(precompile, lang)
		}
	}
	exec, err := newExecutor(cmd, memory, precompile...)
	if err != nil {
		return err
	}
	defer exec.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sessions := newSessionManager(ttl)
	defer sessions.closeAll()
	go sessions.cleanup(ctx)

	srv := &server{
		exec:     exec,
		manifest: m,
		mode:     mode,
		sessions: sessions,
		runOpts:  buildRunOpts(cmd),
		pageOpts: pageOptions(cmd),
		timeout:  timeout,
	}

	addr := fmt.Sprintf(":%d", port)
	fmt.Fprintf(os.Stderr, "pagekit server listening on %s\n", addr)
	return http.ListenAndServe(addr, srv.routes())
}
