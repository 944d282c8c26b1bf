package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/kgbridge/internal/agent"
	"github.com/mattjoyce/kgbridge/internal/clock"
	"github.com/mattjoyce/kgbridge/internal/config"
	"github.com/mattjoyce/kgbridge/internal/events"
	"github.com/mattjoyce/kgbridge/internal/framing"
	"github.com/mattjoyce/kgbridge/internal/history"
	"github.com/mattjoyce/kgbridge/internal/log"
)

// State is the supervisor's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	// StateDisabled is absorbing: the crash breaker tripped and the
	// supervisor refuses further starts.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Recorder persists supervision history. *history.Store satisfies it;
// a nil Recorder disables persistence.
type Recorder interface {
	RecordStart(ctx context.Context, session history.Session) error
	RecordExit(ctx context.Context, exit history.Exit) error
	MarkDisabled(ctx context.Context, sessionID string) error
	RecordError(ctx context.Context, sessionID, kind, message string) error
}

// Options configures a Supervisor.
type Options struct {
	Agent      config.AgentConfig
	Supervisor config.SupervisorConfig

	Hub     *events.Hub
	History Recorder

	// Clock defaults to the wall clock. Tests inject clock.NewFake so
	// the watchdog, kill grace, and restart delay are deterministic.
	Clock  clock.Clock
	Logger *slog.Logger

	// ResolveCommand bypasses the agent resolver entirely.
	ResolveCommand func() (agent.Command, error)
}

// Supervisor owns at most one agent child process at a time: it spawns
// it, feeds its stdout/stderr through the frame decoder into the events
// hub, serializes writes to its stdin, and restarts it after unexpected
// exits until the crash breaker trips.
type Supervisor struct {
	cfg     config.SupervisorConfig
	agent   config.AgentConfig
	hub     *events.Hub
	rec     Recorder
	clk     clock.Clock
	logger  *slog.Logger
	resolve func() (agent.Command, error)

	mu           sync.Mutex
	state        State
	generation   uint64
	current      *session
	crashes      []time.Time
	restartTimer clock.Timer
}

// session is one spawn attempt. A new one is created per spawn; frames,
// exits, and timer callbacks from a superseded session are discarded.
type session struct {
	id         string
	generation uint64
	cmd        *exec.Cmd
	pid        int
	writes     *writeQueue
	watchdog   clock.Timer
	killTimer  clock.Timer

	// detached is set on explicit stop and on exit; once set, no
	// further frames from this session reach the hub.
	detached  atomic.Bool
	sawObject atomic.Bool
	explicit  bool // guarded by Supervisor.mu
	readers   sync.WaitGroup
}

// New creates a Supervisor. Zero tuning fields fall back to defaults.
func New(opts Options) *Supervisor {
	cfg := opts.Supervisor
	def := config.Defaults().Supervisor
	if cfg.CrashWindow <= 0 {
		cfg.CrashWindow = def.CrashWindow
	}
	if cfg.CrashThreshold <= 0 {
		cfg.CrashThreshold = def.CrashThreshold
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = def.RestartDelay
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = def.StartupTimeout
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = def.KillGrace
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = def.MaxLineBytes
	}
	if cfg.MaxBufferBytes <= 0 {
		cfg.MaxBufferBytes = def.MaxBufferBytes
	}

	s := &Supervisor{
		cfg:     cfg,
		agent:   opts.Agent,
		hub:     opts.Hub,
		rec:     opts.History,
		clk:     opts.Clock,
		logger:  opts.Logger,
		resolve: opts.ResolveCommand,
	}
	if s.clk == nil {
		s.clk = clock.Real()
	}
	if s.logger == nil {
		s.logger = log.WithComponent("supervisor")
	}
	if s.resolve == nil {
		agentCfg := opts.Agent
		s.resolve = func() (agent.Command, error) {
			return agent.Resolve(agentCfg)
		}
	}
	return s
}

// Start spawns the agent process. Returns true if the agent is running
// on return (including when it already was), false if the supervisor is
// disabled, mid-stop, or the spawn failed. Never blocks on child I/O.
func (s *Supervisor) Start() bool {
	s.mu.Lock()
	switch s.state {
	case StateRunning, StateStarting:
		s.mu.Unlock()
		return true
	case StateStopping:
		s.mu.Unlock()
		return false
	case StateDisabled:
		s.mu.Unlock()
		s.logger.Warn("start refused, crash breaker tripped")
		return false
	}
	// A manual start supersedes a pending auto-restart.
	s.cancelRestartLocked()
	s.state = StateStarting

	cmdSpec, err := s.resolve()
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		s.spawnFailed(fmt.Errorf("resolve agent command: %w", err))
		return false
	}

	cmd := exec.Command(cmdSpec.Path, cmdSpec.Args...)
	cmd.Dir = cmdSpec.Workdir
	if len(cmdSpec.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range cmdSpec.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err == nil {
		var stdout, stderr io.ReadCloser
		stdout, err = cmd.StdoutPipe()
		if err == nil {
			stderr, err = cmd.StderrPipe()
			if err == nil {
				err = cmd.Start()
			}
		}
		if err == nil {
			s.generation++
			att := &session{
				id:         uuid.NewString(),
				generation: s.generation,
				cmd:        cmd,
				pid:        cmd.Process.Pid,
			}
			att.writes = newWriteQueue(stdin, func(werr error) {
				s.writeFailed(att, werr)
			})
			att.watchdog = s.clk.AfterFunc(s.cfg.StartupTimeout, func() {
				s.watchdogExpired(att)
			})
			s.current = att
			s.state = StateRunning
			startedAt := s.clk.Now()
			s.mu.Unlock()

			att.readers.Add(2)
			go s.readPipe(att, stdout)
			go s.readPipe(att, stderr)
			go s.waitLoop(att)

			if s.rec != nil {
				pid := att.pid
				if rerr := s.rec.RecordStart(context.Background(), history.Session{
					ID:         att.id,
					Mode:       s.agent.Mode,
					Executable: cmdSpec.Path,
					PID:        &pid,
					StartedAt:  startedAt,
				}); rerr != nil {
					s.logger.Error("failed to record session start", "error", rerr)
				}
			}
			s.publish(events.ChannelStatus, StatusPayload{Running: true, PID: att.pid})
			s.logger.Info("agent started", "session", att.id, "pid", att.pid, "executable", cmdSpec.Path)
			return true
		}
	}

	s.state = StateIdle
	s.mu.Unlock()
	s.spawnFailed(fmt.Errorf("spawn %s: %w", cmdSpec.Path, err))
	return false
}

// Stop terminates the agent gracefully: listeners are detached first so
// no further frames are delivered, stdin is closed after queued writes
// drain, SIGTERM is sent, and a kill timer escalates to SIGKILL if the
// process outlives the grace period. A pending auto-restart is
// cancelled even when nothing is running. Returns true if a running
// process was stopped.
func (s *Supervisor) Stop() bool {
	s.mu.Lock()
	s.cancelRestartLocked()
	if s.state != StateRunning || s.current == nil {
		s.mu.Unlock()
		return false
	}
	att := s.current
	att.explicit = true
	att.detached.Store(true)
	s.state = StateStopping
	att.writes.close()
	if att.watchdog != nil {
		att.watchdog.Stop()
	}
	if err := att.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		s.logger.Warn("failed to signal agent", "pid", att.pid, "error", err)
	}
	att.killTimer = s.clk.AfterFunc(s.cfg.KillGrace, func() {
		s.killGraceExpired(att)
	})
	s.mu.Unlock()
	s.logger.Info("stopping agent", "session", att.id, "pid", att.pid)
	return true
}

// Kill terminates the agent immediately with SIGKILL. Used by the
// shutdown sweep; no grace, no restart.
func (s *Supervisor) Kill() {
	s.mu.Lock()
	s.cancelRestartLocked()
	att := s.current
	if att == nil {
		s.mu.Unlock()
		return
	}
	att.explicit = true
	att.detached.Store(true)
	s.state = StateStopping
	att.writes.close()
	if att.watchdog != nil {
		att.watchdog.Stop()
	}
	s.mu.Unlock()
	s.logger.Warn("killing agent", "session", att.id, "pid", att.pid)
	_ = att.cmd.Process.Kill()
}

// Send enqueues one line for the agent's stdin. The trailing newline is
// appended here. Returns false when no process is running or the write
// queue is saturated.
func (s *Supervisor) Send(text string) bool {
	s.mu.Lock()
	if s.state != StateRunning || s.current == nil {
		s.mu.Unlock()
		return false
	}
	att := s.current
	s.mu.Unlock()

	payload := make([]byte, 0, len(text)+1)
	payload = append(payload, text...)
	payload = append(payload, '\n')
	if err := att.writes.enqueue(payload); err != nil {
		s.logger.Warn("send rejected", "session", att.id, "error", err)
		s.publish(events.ChannelError, ErrorPayload{Kind: errKindWrite, Message: err.Error()})
		return false
	}
	return true
}

// Status is a point-in-time snapshot for the API and CLI.
type Status struct {
	State      string `json:"state"`
	Mode       string `json:"mode"`
	SessionID  string `json:"session_id,omitempty"`
	PID        int    `json:"pid,omitempty"`
	CrashCount int    `json:"crash_count"`
	Disabled   bool   `json:"disabled"`
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:      s.state.String(),
		Mode:       s.agent.Mode,
		CrashCount: len(s.crashes),
		Disabled:   s.state == StateDisabled,
	}
	if s.current != nil {
		st.SessionID = s.current.id
		st.PID = s.current.pid
	}
	return st
}

func (s *Supervisor) readPipe(att *session, r io.Reader) {
	defer att.readers.Done()
	dec := framing.NewDecoder(framing.Config{
		MaxLineBytes:   s.cfg.MaxLineBytes,
		MaxBufferBytes: s.cfg.MaxBufferBytes,
	}, func(f framing.Frame) {
		s.handleFrame(att, f)
	})
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = dec.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	_ = dec.Close()
}

func (s *Supervisor) handleFrame(att *session, f framing.Frame) {
	if att.detached.Load() {
		return
	}
	switch f.Kind {
	case framing.KindObject:
		if att.sawObject.CompareAndSwap(false, true) {
			att.watchdog.Stop()
		}
		s.publish(events.ChannelMessage, f.Object)
	case framing.KindRawLine:
		s.logger.Debug("non-json line from agent", "session", att.id, "line", f.Line)
		s.publish(events.ChannelMessage, rawLinePayload{Type: "raw", Line: f.Line})
	case framing.KindError:
		s.logger.Warn("frame decode error", "session", att.id, "error", f.Err)
		s.publish(events.ChannelError, ErrorPayload{Kind: errKindFraming, Message: f.Err})
		s.recordError(att.id, errKindFraming, f.Err)
	}
}

// waitLoop reaps the child. It waits for both pipe readers to hit EOF
// before calling Wait so no tail output is lost.
func (s *Supervisor) waitLoop(att *session) {
	att.readers.Wait()
	_ = att.cmd.Wait()
	code, sig := exitStatus(att.cmd.ProcessState)

	s.mu.Lock()
	if s.current != att {
		s.mu.Unlock()
		return
	}
	att.detached.Store(true)
	if att.watchdog != nil {
		att.watchdog.Stop()
	}
	if att.killTimer != nil {
		att.killTimer.Stop()
	}
	att.writes.close()
	explicit := att.explicit
	s.current = nil
	s.state = StateIdle

	now := s.clk.Now()
	disabled := false
	crashCount := 0
	if !explicit {
		s.crashes = append(s.crashes, now)
		s.pruneCrashesLocked(now)
		crashCount = len(s.crashes)
		if crashCount > s.cfg.CrashThreshold {
			s.state = StateDisabled
			disabled = true
		} else {
			s.armRestartLocked()
		}
	}
	s.mu.Unlock()

	s.logger.Info("agent exited", "session", att.id, "pid", att.pid,
		"code", ptrVal(code), "signal", ptrVal(sig), "expected", explicit)
	if s.rec != nil {
		if rerr := s.rec.RecordExit(context.Background(), history.Exit{
			SessionID: att.id,
			ExitedAt:  now,
			ExitCode:  code,
			Signal:    sig,
			Expected:  explicit,
		}); rerr != nil {
			s.logger.Error("failed to record session exit", "error", rerr)
		}
	}
	s.publish(events.ChannelExit, ExitPayload{Code: code, Signal: sig, Expected: explicit})
	s.publish(events.ChannelStatus, StatusPayload{Running: false, Code: code, Signal: sig})
	if !explicit {
		s.publish(events.ChannelError, ErrorPayload{
			Kind:    errKindExit,
			Message: fmt.Sprintf("agent exited unexpectedly (code %v, signal %v)", ptrVal(code), ptrVal(sig)),
		})
	}
	if disabled {
		msg := fmt.Sprintf("agent crashed %d times within %s, supervision disabled", crashCount, s.cfg.CrashWindow)
		s.logger.Error("crash breaker tripped", "session", att.id, "crashes", crashCount)
		s.publish(events.ChannelError, ErrorPayload{Kind: errKindCrashLoop, Message: msg})
		if s.rec != nil {
			if rerr := s.rec.MarkDisabled(context.Background(), att.id); rerr != nil {
				s.logger.Error("failed to record crash-loop disable", "error", rerr)
			}
		}
		s.recordError(att.id, errKindCrashLoop, msg)
	}
}

// pruneCrashesLocked drops crash timestamps outside the sliding window.
func (s *Supervisor) pruneCrashesLocked(now time.Time) {
	cutoff := now.Add(-s.cfg.CrashWindow)
	kept := s.crashes[:0]
	for _, t := range s.crashes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.crashes = kept
}

// armRestartLocked schedules exactly one auto-restart. The generation
// guard makes a stale callback a no-op after Stop or a manual Start.
func (s *Supervisor) armRestartLocked() {
	gen := s.generation
	s.restartTimer = s.clk.AfterFunc(s.cfg.RestartDelay, func() {
		s.mu.Lock()
		if s.restartTimer == nil || s.generation != gen || s.state != StateIdle {
			s.mu.Unlock()
			return
		}
		s.restartTimer = nil
		s.mu.Unlock()
		s.logger.Info("restarting agent after unexpected exit")
		s.Start()
	})
}

func (s *Supervisor) cancelRestartLocked() {
	if s.restartTimer != nil {
		s.restartTimer.Stop()
		s.restartTimer = nil
	}
}

func (s *Supervisor) watchdogExpired(att *session) {
	if att.detached.Load() || att.sawObject.Load() {
		return
	}
	s.mu.Lock()
	current := s.current == att
	s.mu.Unlock()
	if !current {
		return
	}
	msg := fmt.Sprintf("no well-formed output from agent within %s", s.cfg.StartupTimeout)
	s.logger.Warn("startup watchdog expired", "session", att.id, "pid", att.pid)
	s.publish(events.ChannelError, ErrorPayload{Kind: errKindWatchdog, Message: msg})
	s.recordError(att.id, errKindWatchdog, msg)
}

func (s *Supervisor) killGraceExpired(att *session) {
	s.mu.Lock()
	current := s.current == att
	s.mu.Unlock()
	if !current {
		return
	}
	s.logger.Warn("kill grace expired, escalating to SIGKILL", "session", att.id, "pid", att.pid)
	_ = att.cmd.Process.Kill()
}

func (s *Supervisor) spawnFailed(err error) {
	s.logger.Error("failed to start agent", "error", err)
	s.publish(events.ChannelError, ErrorPayload{Kind: errKindSpawn, Message: err.Error()})
	s.recordError("", errKindSpawn, err.Error())
}

func (s *Supervisor) writeFailed(att *session, err error) {
	if att.detached.Load() {
		return
	}
	s.logger.Warn("write to agent stdin failed", "session", att.id, "error", err)
	s.publish(events.ChannelError, ErrorPayload{Kind: errKindWrite, Message: err.Error()})
	s.recordError(att.id, errKindWrite, err.Error())
}

func (s *Supervisor) publish(ch events.Channel, data any) {
	if s.hub != nil {
		s.hub.Publish(ch, data)
	}
}

func (s *Supervisor) recordError(sessionID, kind, message string) {
	if s.rec == nil {
		return
	}
	if err := s.rec.RecordError(context.Background(), sessionID, kind, message); err != nil {
		s.logger.Error("failed to record error", "error", err)
	}
}

func exitStatus(ps *os.ProcessState) (code *int, signal *string) {
	if ps == nil {
		return nil, nil
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal().String()
		return nil, &sig
	}
	c := ps.ExitCode()
	return &c, nil
}

func ptrVal[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
