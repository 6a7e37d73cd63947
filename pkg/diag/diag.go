// Package diag carries structured driver diagnostics. Components report
// through a Reporter rather than returning warnings, so the same code path
// serves the CLI (zap-backed) and tests (collector).
package diag

import "go.uber.org/zap"

// Code identifies a diagnostic class. Codes are stable strings used in
// structured log output.
type Code string

const (
	CodeNoInstallation    Code = "no-sdk-installation"
	CodeVersionTooLow     Code = "version-too-low"
	CodeNoDeviceLibrary   Code = "no-device-library"
	CodeBadArchArgument   Code = "invalid-arch-argument"
	CodeArchArgDriverFlag Code = "invalid-arch-argument-driver-flag"
)

// Diagnostic is a single structured report.
type Diagnostic struct {
	Code    Code
	Message string
	Fields  map[string]string
}

// Reporter receives diagnostics. Implementations must tolerate repeated
// calls; de-duplication is the emitter's responsibility.
type Reporter interface {
	Report(d Diagnostic)
}

// ZapReporter logs diagnostics as warnings with structured fields.
type ZapReporter struct {
	log *zap.Logger
}

func NewZapReporter(log *zap.Logger) *ZapReporter {
	return &ZapReporter{log: log}
}

func (r *ZapReporter) Report(d Diagnostic) {
	fields := make([]zap.Field, 0, len(d.Fields)+1)
	fields = append(fields, zap.String("code", string(d.Code)))
	for k, v := range d.Fields {
		fields = append(fields, zap.String(k, v))
	}
	r.log.Warn(d.Message, fields...)
}

// Collector records diagnostics in order. Intended for tests.
type Collector struct {
	Diagnostics []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// ByCode returns the recorded diagnostics carrying the given code.
func (c *Collector) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Diagnostics {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}
