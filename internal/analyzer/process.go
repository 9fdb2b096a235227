// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package analyzer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/procgroup"
)

const (
	// DefaultGrace is how long a stopped analyzer gets to exit on SIGTERM
	// before the SIGKILL escalation.
	DefaultGrace = 5 * time.Second

	diagRingSize   = 256
	lineChanBuffer = 64
	maxLineBytes   = 1 << 20
)

var (
	startTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_analyzer_start_total",
		Help: "Total number of analyzer process starts",
	}, []string{"result"})

	exitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_analyzer_exit_total",
		Help: "Total number of analyzer process exits",
	}, []string{"reason"})
)

// ErrAlreadyRunning reports a start attempt while a prior process has not
// been cleaned up.
var ErrAlreadyRunning = errors.New("analyzer already running")

// LaunchError reports that the analyzer process could not be started.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string { return fmt.Sprintf("analyzer launch failed: %v", e.Err) }
func (e *LaunchError) Unwrap() error { return e.Err }

// Process is one live analyzer under supervision. Its structured output and
// diagnostic output are consumed concurrently from the moment of launch; the
// exit status is collected exactly once after both streams drain.
type Process struct {
	cmd   *exec.Cmd
	cfg   Config
	pid   int
	grace time.Duration

	outCh  chan string
	diagCh chan string
	ring   *LineRing

	ioWg    sync.WaitGroup
	waitCh  chan error
	done    chan struct{}
	exitErr error

	stopRequested atomic.Bool
	stopOnce      sync.Once
	stopErr       error
}

// Launch starts the analyzer described by cfg and begins consuming both
// output channels. The returned Process is already running; the caller owns
// its shutdown via Stop.
func Launch(ctx context.Context, cfg Config, grace time.Duration) (*Process, error) {
	logger := log.WithContext(ctx, log.WithComponent("analyzer"))

	if err := cfg.Validate(); err != nil {
		startTotal.WithLabelValues("error").Inc()
		return nil, &LaunchError{Err: err}
	}
	if grace <= 0 {
		grace = DefaultGrace
	}

	// Deliberately exec.Command, not CommandContext: shutdown belongs to
	// Stop's SIGTERM-then-SIGKILL sequence, not to context teardown.
	cmd := exec.Command(cfg.python(), cfg.Args()...) // #nosec G204
	procgroup.Set(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		startTotal.WithLabelValues("error").Inc()
		return nil, &LaunchError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		startTotal.WithLabelValues("error").Inc()
		return nil, &LaunchError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stderr.Close()
		startTotal.WithLabelValues("error").Inc()
		return nil, &LaunchError{Err: fmt.Errorf("start: %w", err)}
	}

	p := &Process{
		cmd:    cmd,
		cfg:    cfg,
		pid:    cmd.Process.Pid,
		grace:  grace,
		outCh:  make(chan string, lineChanBuffer),
		diagCh: make(chan string, lineChanBuffer),
		ring:   NewLineRing(diagRingSize),
		waitCh: make(chan error, 1),
		done:   make(chan struct{}),
	}

	p.ioWg.Add(2)
	go p.scan(stdout, p.outCh, nil)
	go p.scan(stderr, p.diagCh, p.ring)
	go p.reap()

	startTotal.WithLabelValues("ok").Inc()
	logger.Info().
		Int(log.FieldPID, p.pid).
		Str("command", cmd.String()).
		Str(log.FieldEvent, "analyzer.started").
		Msg("analyzer process started")

	return p, nil
}

// scan consumes one output stream line by line. Consumers must drain the
// channel until close or the stream cannot reach EOF.
func (p *Process) scan(rd io.Reader, out chan<- string, ring *LineRing) {
	defer p.ioWg.Done()
	defer close(out)

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if ring != nil {
			ring.Add(line)
		}
		out <- line
	}
	if err := scanner.Err(); err != nil {
		logger := log.WithComponent("analyzer")
		logger.Warn().
			Err(err).
			Int(log.FieldPID, p.pid).
			Str(log.FieldEvent, "analyzer.scan_failed").
			Msg("output stream ended with a read error")
	}
}

// reap waits for both streams to drain, then collects the exit status
// exactly once. done is closed only after exitErr is set.
func (p *Process) reap() {
	p.ioWg.Wait()
	err := p.cmd.Wait()
	p.exitErr = err

	if err == nil {
		exitTotal.WithLabelValues("exit0").Inc()
	} else {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == -1 {
			exitTotal.WithLabelValues("signal").Inc()
		} else {
			exitTotal.WithLabelValues("exit_nonzero").Inc()
		}
	}

	p.waitCh <- err
	close(p.done)
}

// Lines streams the analyzer's structured output, one line per element. The
// channel closes when the stream ends.
func (p *Process) Lines() <-chan string { return p.outCh }

// DiagLines streams the analyzer's diagnostic output verbatim.
func (p *Process) DiagLines() <-chan string { return p.diagCh }

// LastDiagnostics returns up to n recent diagnostic lines.
func (p *Process) LastDiagnostics(n int) []string { return p.ring.LastN(n) }

// Done is closed once the process has exited and both streams are drained.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitError reports the process's wait result; nil until Done is closed.
func (p *Process) ExitError() error {
	select {
	case <-p.done:
		return p.exitErr
	default:
		return nil
	}
}

// PID returns the analyzer's process id.
func (p *Process) PID() int { return p.pid }

// StopRequested reports whether Stop has been called. An exit observed
// without a stop request is unsolicited.
func (p *Process) StopRequested() bool { return p.stopRequested.Load() }

// Config returns the configuration the process was launched with.
func (p *Process) Config() Config { return p.cfg }

// Stop terminates the process group gracefully, escalating to SIGKILL once
// the grace period expires. It returns after the process is fully reaped and
// both output channels are closed. A process that died from the requested
// signal counts as a successful stop. Idempotent; concurrent callers share
// one termination.
func (p *Process) Stop() error {
	p.stopOnce.Do(func() {
		p.stopRequested.Store(true)
		err := procgroup.Terminate(p.cmd, p.waitCh, p.grace)
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			p.stopErr = err
		}
		<-p.done
	})
	return p.stopErr
}
