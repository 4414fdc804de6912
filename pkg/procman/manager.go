// Package procman starts and stops inference server processes.
//
// A Manager owns at most one live process per Instance (host:port). Every
// start is recorded in a kv.Store so that a later invocation, possibly from
// another process, can report on or stop the server. Output of servers
// started by a Manager is kept in memory (see Logs) and appended to
// LogDir/<host>_<port>.log.
package procman

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nadare881/rvc-webui/pkg/buffer"
	"github.com/nadare881/rvc-webui/pkg/kv"
)

var (
	// ErrAlreadyRunning is returned by Start when the instance has a live
	// process.
	ErrAlreadyRunning = errors.New("procman: server already running")

	// ErrNotFound is returned when no record exists for an instance.
	ErrNotFound = errors.New("procman: server not found")

	// ErrNoCommand is returned by New when Options.Command is empty.
	ErrNoCommand = errors.New("procman: no server command")
)

// DefaultLogLines is the number of output lines kept per process.
const DefaultLogLines = 500

// DefaultGrace is how long Stop waits after the terminate signal.
const DefaultGrace = 5 * time.Second

// Options configures a Manager.
type Options struct {
	// Command is the server executable and its leading arguments.
	// "--host <h> --port <p>" is appended on start.
	Command []string

	// Dir is the working directory of started servers.
	Dir string

	// Env is appended to the current environment.
	Env []string

	// Store holds server records. Required.
	Store kv.Store

	// LogDir receives <host>_<port>.log. Empty disables log files.
	LogDir string

	// LogLines caps the in-memory output tail. Zero means DefaultLogLines.
	LogLines int

	// Detach writes server output straight to the log file instead of
	// through the Manager, so the server keeps running and logging after
	// the calling process exits. Logs then reads the file.
	Detach bool

	Logger *slog.Logger
}

type process struct {
	cmd  *exec.Cmd
	logs *buffer.LineRing
	file *os.File
	done chan struct{}
	err  error
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Manager starts, tracks and stops servers. It is safe for concurrent use.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	procs map[Instance]*process
}

// New returns a Manager.
func New(opts Options) (*Manager, error) {
	if len(opts.Command) == 0 || opts.Command[0] == "" {
		return nil, ErrNoCommand
	}
	if opts.Store == nil {
		return nil, errors.New("procman: nil store")
	}
	if opts.LogLines <= 0 {
		opts.LogLines = DefaultLogLines
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{opts: opts, logger: logger, procs: make(map[Instance]*process)}, nil
}

// LogPath returns the log file used for inst, or "" if log files are
// disabled.
func (m *Manager) LogPath(inst Instance) string {
	if m.opts.LogDir == "" {
		return ""
	}
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(inst.Host + "_" + inst.Port)
	return filepath.Join(m.opts.LogDir, name+".log")
}

// Start launches a server for inst and returns without waiting for it to
// accept connections. A record left by a server that is no longer alive is
// replaced.
func (m *Manager) Start(ctx context.Context, inst Instance) (*Record, error) {
	if inst.Host == "" || inst.Port == "" {
		return nil, fmt.Errorf("procman: invalid instance %q", inst.Addr())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.procs[inst]; ok && !p.exited() {
		return nil, fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, inst, p.cmd.Process.Pid)
	}
	prev, err := kv.GetValue[Record](ctx, m.opts.Store, inst.key())
	switch {
	case err == nil:
		if m.running(inst, &prev) {
			return nil, fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, inst, prev.PID)
		}
		m.logger.Debug("procman: replacing stale record", "addr", inst.Addr(), "pid", prev.PID)
	case !errors.Is(err, kv.ErrNotFound):
		return nil, fmt.Errorf("procman: read record: %w", err)
	}

	args := append(append([]string{}, m.opts.Command...), "--host", inst.Host, "--port", inst.Port)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = m.opts.Dir
	if len(m.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), m.opts.Env...)
	}
	detach(cmd)

	p := &process{cmd: cmd, done: make(chan struct{})}
	logPath := m.LogPath(inst)
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, fmt.Errorf("procman: create log dir: %w", err)
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("procman: open log: %w", err)
		}
		p.file = f
	}
	if m.opts.Detach {
		if p.file != nil {
			cmd.Stdout, cmd.Stderr = p.file, p.file
		}
	} else {
		p.logs = buffer.NewLineRing(m.opts.LogLines)
		var out io.Writer = p.logs
		if p.file != nil {
			out = io.MultiWriter(p.logs, p.file)
		}
		cmd.Stdout, cmd.Stderr = out, out
	}

	if err := cmd.Start(); err != nil {
		if p.file != nil {
			p.file.Close()
		}
		return nil, fmt.Errorf("procman: start %s: %w", args[0], err)
	}

	rec := Record{
		Host:      inst.Host,
		Port:      inst.Port,
		PID:       cmd.Process.Pid,
		Command:   args,
		LogFile:   logPath,
		StartedAt: time.Now().UTC(),
	}
	if st, ok := processStart(rec.PID); ok {
		rec.StartTicks = st
	}
	if err := kv.SetValue(ctx, m.opts.Store, inst.key(), rec); err != nil {
		_ = kill(rec.PID)
		_ = cmd.Wait()
		if p.file != nil {
			p.file.Close()
		}
		return nil, fmt.Errorf("procman: save record: %w", err)
	}
	m.procs[inst] = p
	go m.wait(inst, p)

	m.logger.Info("procman: server started", "addr", inst.Addr(), "pid", rec.PID, "log", logPath)
	rec.Running = true
	return &rec, nil
}

func (m *Manager) wait(inst Instance, p *process) {
	err := p.cmd.Wait()
	if p.logs != nil {
		p.logs.Flush()
	}
	if p.file != nil {
		p.file.Close()
	}
	p.err = err
	close(p.done)
	m.logger.Info("procman: server exited", "addr", inst.Addr(), "pid", p.cmd.Process.Pid, "error", err)
}

// running reports whether rec's process is alive. Processes started by m
// are checked through their wait state, which also covers exited children
// that have not been reaped yet. Any other pid must still be the recorded
// server; a reused pid counts as not running.
func (m *Manager) running(inst Instance, rec *Record) bool {
	if p, ok := m.procs[inst]; ok && p.cmd.Process.Pid == rec.PID {
		return !p.exited()
	}
	return sameProcess(rec)
}

// Status returns the record for inst with Running filled in.
func (m *Manager) Status(ctx context.Context, inst Instance) (*Record, error) {
	rec, err := kv.GetValue[Record](ctx, m.opts.Store, inst.key())
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, inst)
	}
	if err != nil {
		return nil, fmt.Errorf("procman: read record: %w", err)
	}
	m.mu.Lock()
	rec.Running = m.running(inst, &rec)
	m.mu.Unlock()
	return &rec, nil
}

// List returns every recorded server in key order.
func (m *Manager) List(ctx context.Context) ([]Record, error) {
	recs, err := kv.Values[Record](ctx, m.opts.Store, recordPrefix)
	if err != nil {
		return nil, fmt.Errorf("procman: list records: %w", err)
	}
	m.mu.Lock()
	for i := range recs {
		recs[i].Running = m.running(recs[i].Instance(), &recs[i])
	}
	m.mu.Unlock()
	return recs, nil
}

// Stop terminates the server for inst and removes its record. The process
// is killed if it has not exited grace after the terminate signal. Stopping
// a server that already exited only removes the record.
func (m *Manager) Stop(ctx context.Context, inst Instance, grace time.Duration) error {
	rec, err := m.Status(ctx, inst)
	if err != nil {
		return err
	}
	if grace <= 0 {
		grace = DefaultGrace
	}

	if rec.Running {
		m.logger.Debug("procman: terminating", "addr", inst.Addr(), "pid", rec.PID)
		if err := terminate(rec.PID); err != nil && m.isRunning(inst, rec) {
			return fmt.Errorf("procman: terminate pid %d: %w", rec.PID, err)
		}
		if err := m.waitExit(ctx, inst, rec, grace); err != nil {
			return err
		}
	}

	if err := m.opts.Store.Delete(ctx, inst.key()); err != nil {
		return fmt.Errorf("procman: delete record: %w", err)
	}
	m.logger.Info("procman: server stopped", "addr", inst.Addr(), "pid", rec.PID)
	return nil
}

func (m *Manager) isRunning(inst Instance, rec *Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running(inst, rec)
}

func (m *Manager) waitExit(ctx context.Context, inst Instance, rec *Record, grace time.Duration) error {
	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	killed := false
	for m.isRunning(inst, rec) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("procman: stop %s: %w", inst, ctx.Err())
		case <-deadline.C:
			if killed {
				return fmt.Errorf("procman: pid %d did not exit", rec.PID)
			}
			m.logger.Warn("procman: grace period elapsed, killing", "addr", inst.Addr(), "pid", rec.PID)
			if err := kill(rec.PID); err != nil && m.isRunning(inst, rec) {
				return fmt.Errorf("procman: kill pid %d: %w", rec.PID, err)
			}
			killed = true
			deadline.Reset(grace)
		case <-tick.C:
		}
	}
	return nil
}

// Logs returns the most recent output lines of the server for inst. For a
// server started by m without Detach the in-memory tail is used; otherwise
// the tail of the log file is read.
func (m *Manager) Logs(inst Instance) ([]string, error) {
	m.mu.Lock()
	p, ok := m.procs[inst]
	m.mu.Unlock()
	if ok && p.logs != nil {
		return p.logs.Lines(), nil
	}
	path := m.LogPath(inst)
	if path == "" {
		return nil, fmt.Errorf("%w: no captured output for %s", ErrNotFound, inst)
	}
	return tailFile(path, m.opts.LogLines)
}

// Wait blocks until the server for inst started by m exits and returns its
// exit error.
func (m *Manager) Wait(ctx context.Context, inst Instance) error {
	m.mu.Lock()
	p, ok := m.procs[inst]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s was not started here", ErrNotFound, inst)
	}
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func tailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("procman: open log: %w", err)
	}
	defer f.Close()
	lr := buffer.NewLineRing(n)
	if _, err := io.Copy(lr, f); err != nil {
		return nil, fmt.Errorf("procman: read log: %w", err)
	}
	lr.Flush()
	return lr.Lines(), nil
}
