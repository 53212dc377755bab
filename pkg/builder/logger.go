// pkg/builder/logger.go
package builder

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *log.Logger {
	return log.New(io.Discard)
}

// logged reports every operation before forwarding it
type logged struct {
	next   Builder
	logger *log.Logger
}

// WithLogger wraps b so each operation is logged at debug level. The
// extraction-root placeholder is shown as <tempdir>.
func WithLogger(b Builder, logger *log.Logger) Builder {
	if logger == nil {
		return b
	}
	return &logged{next: b, logger: logger}
}

func (l *logged) CreateDirectory(target string) error {
	l.logger.Debugf("mkdir %s", target)
	return l.next.CreateDirectory(target)
}

func (l *logged) CreateFile(source, target string) error {
	l.logger.Debugf("cp %s %s", source, target)
	return l.next.CreateFile(source, target)
}

func (l *logged) Touch(target string) error {
	l.logger.Debugf("touch %s", target)
	return Touch(l.next, target)
}

func (l *logged) SetEnvironment(name, value string) error {
	l.logger.Debugf("export %s=%s", name, showPlaceholder(value))
	return l.next.SetEnvironment(name, value)
}

func (l *logged) SetEntryPoint(interpreter, script string, args ...string) error {
	shown := make([]string, len(args))
	for i, a := range args {
		shown[i] = showPlaceholder(a)
	}
	l.logger.Debugf("exec %s %s %s", interpreter, script, strings.Join(shown, " "))
	return l.next.SetEntryPoint(interpreter, script, args...)
}

func showPlaceholder(s string) string {
	return strings.ReplaceAll(s, "|", "<tempdir>")
}
