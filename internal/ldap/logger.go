package ldap

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-log/tfsdklog"
)

const (
	// RootLogName names the root logger created by NewRootContext.
	RootLogName = "ldapodm"

	// RootLogEnv sets the root logger level. Subsystems read RootLogEnv_<SUBSYSTEM>.
	RootLogEnv = "LDAPODM_LOG"
)

// NewRootContext returns ctx carrying a root logger that writes JSON lines to
// stderr. The level is read from LDAPODM_LOG and logging is off when it is
// unset; subsystem levels still apply.
func NewRootContext(ctx context.Context) context.Context {
	level := hclog.LevelFromString(os.Getenv(RootLogEnv))
	if level == hclog.NoLevel {
		level = hclog.Off
	}

	return tfsdklog.NewRootProviderLogger(ctx,
		tfsdklog.WithLogName(RootLogName),
		tfsdklog.WithLevel(level),
		tfsdklog.WithoutLocation(),
	)
}

// Logger interface for mapping operations.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Trace(msg string, fields map[string]any)
}

// TFLogger wraps a tflog subsystem.
type TFLogger struct {
	ctx       context.Context
	subsystem string
}

// NewTFLogger registers subsystem on ctx and returns a logger writing to it.
// ctx must carry a root logger, either from NewRootContext or from the
// enclosing provider; otherwise nothing is written. The subsystem level is
// read from LDAPODM_LOG_<SUBSYSTEM> and defaults to the root level.
func NewTFLogger(ctx context.Context, subsystem string) *TFLogger {
	envVar := RootLogEnv + "_" + strings.ToUpper(subsystem)
	return &TFLogger{
		ctx:       tflog.NewSubsystem(ctx, subsystem, tflog.WithLevelFromEnv(envVar)),
		subsystem: subsystem,
	}
}

func (l *TFLogger) Debug(msg string, fields map[string]any) {
	tflog.SubsystemDebug(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Info(msg string, fields map[string]any) {
	tflog.SubsystemInfo(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Warn(msg string, fields map[string]any) {
	tflog.SubsystemWarn(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Error(msg string, fields map[string]any) {
	tflog.SubsystemError(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Trace(msg string, fields map[string]any) {
	tflog.SubsystemTrace(l.ctx, l.subsystem, msg, fields)
}

// LogOperation runs fn and logs its outcome with timing.
func LogOperation(logger Logger, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	if fields == nil {
		fields = make(map[string]any)
	}
	fields["operation"] = operation

	err := fn()

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		fields["error"] = err.Error()
		logger.Warn("Operation failed", fields)
	} else {
		logger.Debug("Operation completed successfully", fields)
	}

	return err
}
