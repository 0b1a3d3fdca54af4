// Package session drives the generate, run, repair loop. Each pass
// through the loop produces at most one Attempt; the loop never makes
// more attempts than the configured ceiling.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billybjork/pixel-toaster/internal/batch"
	"github.com/billybjork/pixel-toaster/internal/executor"
	"github.com/billybjork/pixel-toaster/internal/probe"
	"github.com/billybjork/pixel-toaster/internal/prompt"
	"github.com/billybjork/pixel-toaster/internal/safety"
)

// Attempt is one completed round of the loop. Ordinal starts at 1.
// A synthesis failure still occupies an ordinal even though no process
// ran; its ExitCode is executor.ExitNotExecuted and Stderr carries the
// provider error so the next round can steer away from it.
type Attempt struct {
	Ordinal  int
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	DryRun   bool
}

// Synthesizer turns a composed payload into a shell command string.
type Synthesizer interface {
	Synthesize(ctx context.Context, payload prompt.Payload) (string, error)
}

// Runner executes a command. It matches executor.Run so tests can
// substitute a scripted implementation.
type Runner func(ctx context.Context, command string, dryRun bool) (executor.Result, error)

// ConfirmFunc asks the user whether a command may run. A nil ConfirmFunc
// means auto mode: every command runs without asking.
type ConfirmFunc func(command string) (bool, error)

// Options wires a session together. Env, Composer, and Synth are
// required; Run defaults to executor.Run and Logger to zap.NewNop().
type Options struct {
	Env      probe.Context
	Composer prompt.Composer
	Synth    Synthesizer
	Run      Runner
	Confirm  ConfirmFunc
	Logger   *zap.Logger

	Ceiling int
	DryRun  bool
	Batch   bool
}

type Session struct {
	ID      uuid.UUID
	env     probe.Context
	ceiling int
	dryRun  bool
	batch   bool

	composer prompt.Composer
	synth    Synthesizer
	run      Runner
	confirm  ConfirmFunc
	logger   *zap.Logger

	state    State
	attempts []Attempt
	payload  prompt.Payload
	pending  string
	prior    *prompt.AttemptSummary
	abort    error
}

func New(opts Options) *Session {
	if opts.Run == nil {
		opts.Run = executor.Run
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Ceiling < 1 {
		opts.Ceiling = 1
	}
	return &Session{
		ID:       uuid.New(),
		env:      opts.Env,
		ceiling:  opts.Ceiling,
		dryRun:   opts.DryRun,
		batch:    opts.Batch,
		composer: opts.Composer,
		synth:    opts.Synth,
		run:      opts.Run,
		confirm:  opts.Confirm,
		logger:   opts.Logger,
		state:    StateCompose,
	}
}

// Attempts returns a copy of the history so far.
func (s *Session) Attempts() []Attempt {
	out := make([]Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

func (s *Session) LastAttempt() (Attempt, bool) {
	if len(s.attempts) == 0 {
		return Attempt{}, false
	}
	return s.attempts[len(s.attempts)-1], true
}

func (s *Session) State() State { return s.state }

// Run drives the machine to a terminal state. Succeeded and Previewed
// return nil; Exhausted returns *ExhaustedError with the full history;
// Aborted returns *AbortError.
func (s *Session) Run(ctx context.Context) (State, error) {
	for !s.state.Terminal() {
		next, err := s.step(ctx)
		if err != nil {
			s.abort = err
		}
		s.state = next
	}

	switch s.state {
	case StateExhausted:
		return s.state, &ExhaustedError{Attempts: s.Attempts()}
	case StateAborted:
		return s.state, &AbortError{Err: s.abort}
	default:
		return s.state, nil
	}
}

// step performs the work of the current state and names its successor.
// Any returned error forces the Aborted state.
func (s *Session) step(ctx context.Context) (State, error) {
	switch s.state {
	case StateCompose:
		return s.stepCompose()
	case StateSynthesize:
		return s.stepSynthesize(ctx)
	case StateExecute:
		return s.stepExecute(ctx)
	case StateEvaluate:
		return s.stepEvaluate()
	default:
		return StateAborted, fmt.Errorf("step called in terminal state %s", s.state)
	}
}

func (s *Session) stepCompose() (State, error) {
	s.payload = s.composer.Compose(s.env, s.batch, s.prior)
	s.logger.Debug("prompt composed",
		zap.String("session", s.ID.String()),
		zap.Int("attempt", len(s.attempts)+1),
		zap.Bool("retry", s.prior != nil))
	return StateSynthesize, nil
}

func (s *Session) stepSynthesize(ctx context.Context) (State, error) {
	command, err := s.synth.Synthesize(ctx, s.payload)
	if err != nil {
		if ctx.Err() != nil {
			return StateAborted, executor.ErrInterrupted
		}
		// A failed synthesis burns a retry slot but spawns nothing.
		detail := safety.Scrub(err.Error())
		s.record(Attempt{
			Command:  "",
			ExitCode: executor.ExitNotExecuted,
			Stderr:   detail,
		})
		s.prior = &prompt.AttemptSummary{Stderr: detail}
		s.logger.Warn("synthesis failed",
			zap.String("session", s.ID.String()),
			zap.Error(err))
		return StateEvaluate, nil
	}

	s.pending = command
	if s.batch && !batch.HasIteration(command) {
		s.logger.Warn("batch request produced a single-file command",
			zap.String("command", command))
	}
	return StateExecute, nil
}

func (s *Session) stepExecute(ctx context.Context) (State, error) {
	if s.dryRun {
		s.record(Attempt{
			Command:  s.pending,
			ExitCode: executor.ExitNotExecuted,
			DryRun:   true,
		})
		return StatePreviewed, nil
	}

	if s.confirm != nil {
		ok, err := s.confirm(s.pending)
		if err != nil {
			return StateAborted, err
		}
		if !ok {
			return StateAborted, errors.New("user declined to run the command")
		}
	}

	result, err := s.run(ctx, s.pending, false)
	if err != nil {
		if errors.Is(err, executor.ErrInterrupted) {
			return StateAborted, executor.ErrInterrupted
		}
		return StateAborted, err
	}

	stderr := safety.Scrub(result.Stderr)
	s.record(Attempt{
		Command:  result.Command,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   stderr,
	})

	if result.Success() {
		return StateSucceeded, nil
	}

	s.prior = &prompt.AttemptSummary{Command: result.Command, Stderr: stderr}
	s.logger.Info("command failed",
		zap.String("session", s.ID.String()),
		zap.Int("exit", result.ExitCode),
		zap.Int("attempt", len(s.attempts)))
	return StateEvaluate, nil
}

func (s *Session) stepEvaluate() (State, error) {
	if len(s.attempts) >= s.ceiling {
		return StateExhausted, nil
	}
	return StateCompose, nil
}

func (s *Session) record(a Attempt) {
	a.Ordinal = len(s.attempts) + 1
	s.attempts = append(s.attempts, a)
}
