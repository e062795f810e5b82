// Package logging wraps go.uber.org/zap with the process-wide logger every
// other package accepts optionally (§10.1): the index builder, partition
// writer, parallel generator and parallel allocator all take a
// *zap.SugaredLogger and fall
// back to a no-op logger when none is given, rather than calling
// fmt.Println/log.Printf directly.
package logging

import "go.uber.org/zap"

// Mode selects the logging configuration.
type Mode int

const (
	// Development produces human-readable console output.
	Development Mode = iota
	// Production produces structured JSON output.
	Production
)

// New builds a *zap.SugaredLogger for the given mode. It only errors if
// the underlying zap configuration fails to build, which does not happen
// for the two built-in configurations used here.
func New(mode Mode) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch mode {
	case Production:
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// OrNop returns l if non-nil, or a no-op logger otherwise. Every
// component that accepts an optional logger calls this once at
// construction so its own code never has to nil-check before logging.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l != nil {
		return l
	}
	return zap.NewNop().Sugar()
}
