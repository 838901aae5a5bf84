// Package logging constructs the single structured logger threaded through
// every long-lived component, mirroring how the rest of the system builds
// one logger at the entrypoint and passes it down via constructors.
package logging

import "go.uber.org/zap"

// New builds a production logger writing to stderr.
func New() (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
