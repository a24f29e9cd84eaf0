package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
)

// DefaultGracePeriod is how long a canceled command may take to exit after
// being interrupted before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Config is an allowed command. Turn data is never passed as arguments.
type Config struct {
	Command string            `yaml:"command" json:"command" mapstructure:"command"`
	Args    []string          `yaml:"args" json:"args" mapstructure:"args"`
	Env     map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	Dir     string            `yaml:"dir" json:"dir" mapstructure:"dir"`
}

// Runner executes allow-listed local commands as conversational components.
type Runner struct {
	mu       sync.RWMutex
	registry map[string]Config
	baseDir  string
	grace    time.Duration
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list.
func WithRegistry(commands map[string]Config) RunnerOption {
	return func(r *Runner) {
		for name, c := range commands {
			r.registry[name] = c
		}
	}
}

// WithBaseDir sets the working directory for commands that do not set one.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod bounds the wait between interrupt and kill on cancellation.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]Config),
		grace:    DefaultGracePeriod,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry[name] = cfg
}

// Names lists the registered commands.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.registry))
	for n := range r.registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Component binds a registered command to the TurnProcessor port.
func (r *Runner) Component(name string) (ports.TurnProcessor, error) {
	r.mu.RLock()
	_, ok := r.registry[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: process %q not registered", domain.ErrComponentNotFound, name)
	}
	return ports.TurnProcessorFunc(func(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
		return r.Run(ctx, name, sessionID, input)
	}), nil
}

type turnInput struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

type turnOutput struct {
	Reply *string `json:"reply"`
	Done  bool    `json:"done"`
}

// Run executes one turn of the named command.
// The turn is written to stdin as JSON and the reply is read from stdout.
func (r *Runner) Run(ctx context.Context, name, sessionID, input string) (domain.TurnResult, error) {
	r.mu.RLock()
	proc, ok := r.registry[name]
	r.mu.RUnlock()
	if !ok {
		return domain.TurnResult{}, fmt.Errorf("%w: process %q not registered", domain.ErrComponentNotFound, name)
	}

	payload, err := json.Marshal(turnInput{SessionID: sessionID, UserInput: input})
	if err != nil {
		return domain.TurnResult{}, fmt.Errorf("%w: %w", domain.ErrTurnProcessingFailed, err)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = proc.Dir
	if cmd.Dir == "" {
		cmd.Dir = r.baseDir
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.grace

	env := cmd.Environ()
	for k, v := range proc.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(env, "RELAY_SESSION_ID="+sessionID)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		r.logger.WarnContext(ctx, "process component failed",
			"component", name,
			"session_id", sessionID,
			"duration", time.Since(start),
			"err", err,
		)
		return domain.TurnResult{}, fmt.Errorf("%w: process %s: %w (stderr: %s)",
			domain.ErrTurnProcessingFailed, name, err, strings.TrimSpace(stderr.String()))
	}

	return parseOutput(stdout.String()), nil
}

func parseOutput(raw string) domain.TurnResult {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var out turnOutput
		if err := json.Unmarshal([]byte(trimmed), &out); err == nil && out.Reply != nil {
			return domain.TurnResult{Reply: *out.Reply, Done: out.Done}
		}
	}
	return domain.TurnResult{Reply: trimmed}
}
