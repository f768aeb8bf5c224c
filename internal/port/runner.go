package port

import "context"

// CommandRunner executes an external command and returns its stdout.
// Extractors that shell out (pdftotext) take one so tests can inject a
// double.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
