package recovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/opsforge/warden/internal/backup"
	"github.com/opsforge/warden/internal/registry"
	"github.com/rs/zerolog"
)

const maxScriptOutput = 2048

// ActionRunner executes one service's recovery action.
type ActionRunner interface {
	Recover(ctx context.Context, svc registry.ServiceNode) error
}

// ScriptRunner runs the registry's recovery_script reference through the
// local shell. For stateful services with a snapshot available, the most
// recent snapshot content is piped to the script's stdin and its metadata
// exposed through the environment.
type ScriptRunner struct {
	logger  zerolog.Logger
	backups backup.Store
	workDir string
}

// ScriptOption customizes ScriptRunner behavior.
type ScriptOption func(*ScriptRunner)

// WithWorkDir sets the working directory for recovery scripts.
func WithWorkDir(dir string) ScriptOption {
	return func(r *ScriptRunner) {
		r.workDir = dir
	}
}

// WithBackupStore enables snapshot feeding for stateful services.
func WithBackupStore(store backup.Store) ScriptOption {
	return func(r *ScriptRunner) {
		r.backups = store
	}
}

// NewScriptRunner constructs a ScriptRunner.
func NewScriptRunner(logger zerolog.Logger, opts ...ScriptOption) *ScriptRunner {
	r := &ScriptRunner{logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recover executes the service's recovery script, bounded by the caller's
// context.
func (r *ScriptRunner) Recover(ctx context.Context, svc registry.ServiceNode) error {
	if svc.RecoveryScript == "" {
		return fmt.Errorf("service %s has no recovery script", svc.ID)
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", svc.RecoveryScript)
	cmd.Dir = r.workDir
	cmd.Env = append(os.Environ(), "WARDEN_SERVICE_ID="+svc.ID)

	if svc.Stateful && r.backups != nil {
		reader, meta, err := r.backups.Open(ctx, svc.ID)
		switch {
		case errors.Is(err, backup.ErrNoSnapshot):
			r.logger.Warn().Str("service", svc.ID).Msg("stateful service has no snapshot to restore")
		case err != nil:
			return fmt.Errorf("open snapshot for %s: %w", svc.ID, err)
		default:
			defer reader.Close()
			cmd.Stdin = reader
			cmd.Env = append(cmd.Env,
				"WARDEN_SNAPSHOT_LOCATION="+meta.Location,
				"WARDEN_SNAPSHOT_TAKEN_AT="+meta.TakenAt.Format("2006-01-02T15:04:05Z07:00"),
			)
		}
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("recovery script for %s: %w: %s", svc.ID, err, truncateOutput(output))
	}

	r.logger.Info().
		Str("service", svc.ID).
		Int("output_bytes", len(output)).
		Msg("recovery script completed")
	return nil
}

// DryRunRunner logs the action that would execute without running it.
type DryRunRunner struct {
	logger zerolog.Logger
}

// NewDryRunRunner constructs a DryRunRunner.
func NewDryRunRunner(logger zerolog.Logger) *DryRunRunner {
	return &DryRunRunner{logger: logger}
}

// Recover logs the would-be action and reports success.
func (r *DryRunRunner) Recover(_ context.Context, svc registry.ServiceNode) error {
	r.logger.Info().
		Str("service", svc.ID).
		Str("script", svc.RecoveryScript).
		Msg("dry-run: recovery action skipped")
	return nil
}

func truncateOutput(output []byte) string {
	text := strings.TrimSpace(string(output))
	if len(text) > maxScriptOutput {
		text = text[:maxScriptOutput] + "..."
	}
	return text
}
