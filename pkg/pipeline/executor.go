package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// StageError reports a failed external stage. Stage failures are fatal to
// the enclosing compilation and are never retried.
type StageError struct {
	Stage  string
	Stderr string
	Err    error
}

func (e *StageError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("stage %s failed: %v: %s", e.Stage, e.Err, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Executor runs a job's stages strictly in append order, one at a time.
type Executor struct {
	log     *zap.Logger
	verbose bool
}

func NewExecutor(log *zap.Logger, verbose bool) *Executor {
	return &Executor{log: log, verbose: verbose}
}

// Run executes every stage of the job. The first failure aborts the run.
func (e *Executor) Run(ctx context.Context, job *Job) error {
	for _, stage := range job.Stages() {
		if e.verbose {
			e.log.Info("running stage",
				zap.String("stage", stage.Name),
				zap.String("command", stage.Exec+" "+strings.Join(stage.Args, " ")))
		}

		cmd := exec.CommandContext(ctx, stage.Exec, stage.Args...)
		cmd.Env = os.Environ()
		var stderr bytes.Buffer
		cmd.Stdout = os.Stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return &StageError{Stage: stage.Name, Stderr: stderr.String(), Err: err}
		}
		if stderr.Len() > 0 && e.verbose {
			e.log.Debug("stage stderr",
				zap.String("stage", stage.Name),
				zap.String("stderr", stderr.String()))
		}
	}
	return nil
}
