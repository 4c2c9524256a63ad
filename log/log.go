// Package log defines the logger engine.
// The unique feature is that it can create a child logger derived from the parent logger.
// Each logger defines a unique color style for the message outputs.
//
// Create a child logger for the packages that the workflow is calling.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/gamut"
)

const (
	WithTimestamp    = true
	WithoutTimestamp = false
)

// Logger is the wrapper over the logger and keeps the style.
// The style is generated randomly.
type Logger struct {
	logger *log.Logger
	style  LoggerStyle
}

// LoggerStyle defines the various colors for each log parts.
type LoggerStyle struct {
	prefix    lipgloss.Style
	separator lipgloss.Style
}

func randomStyle() (LoggerStyle, error) {
	rawPalette, err := gamut.Generate(2, gamut.PastelGenerator{})
	if err != nil {
		return LoggerStyle{}, fmt.Errorf("gamut.Generate: %w", err)
	}
	palette := make([]lipgloss.Color, len(rawPalette))
	for i, raw := range rawPalette {
		lighter := gamut.Lighter(raw, 0.05)
		palette[i] = lipgloss.Color(gamut.ToHex(lighter))
	}

	style := LoggerStyle{
		prefix: lipgloss.NewStyle().
			Bold(true).
			Faint(true).
			Foreground(palette[0]),
		separator: lipgloss.NewStyle().
			Faint(true).
			Foreground(palette[1]),
	}

	return style, nil
}

func (style LoggerStyle) apply(logger *log.Logger) {
	styles := log.DefaultStyles()
	styles.Prefix = style.prefix
	styles.Separator = style.separator
	logger.SetStyles(styles)
}

// New logger with the prefix and timestamp.
// It generates the random color style.
func New(prefix string, timestamp bool) (*Logger, error) {
	style, err := randomStyle()
	if err != nil {
		return nil, fmt.Errorf("random_style: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportTimestamp: timestamp,
		ReportCaller:    false,
	})
	style.apply(logger)

	return &Logger{
		logger: logger,
		style:  style,
	}, nil
}

// SetLevel accepts debug, info, warn, error or fatal.
func (logger *Logger) SetLevel(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log.ParseLevel(%q): %w", level, err)
	}
	logger.logger.SetLevel(parsed)
	return nil
}

// SetOutput redirects the logger. Children created afterwards share the writer.
func (logger *Logger) SetOutput(w io.Writer) {
	logger.logger.SetOutput(w)
}

func (logger *Logger) Prefix() string {
	return logger.logger.GetPrefix()
}

// Debug prints the message only when the level is debug
func (logger *Logger) Debug(title string, kv ...interface{}) {
	logger.logger.Debug(title, kv...)
}

// Info prints the information
func (logger *Logger) Info(title string, kv ...interface{}) {
	logger.logger.Info(title, kv...)
}

// Warn prints the warning message
func (logger *Logger) Warn(title string, kv ...interface{}) {
	logger.logger.Warn(title, kv...)
}

// Error prints the error message
func (logger *Logger) Error(title string, kv ...interface{}) {
	logger.logger.Error(title, kv...)
}

// Fatal prints the error message and then calls the os.Exit()
func (logger *Logger) Fatal(title string, kv ...interface{}) {
	logger.logger.Fatal(title, kv...)
}

// Child logger from the parent with the parent's color style.
//
// For example:
//
//	parent, _ := log.New("helios", false)
//	cronLog := parent.Child("cron")
//	deployLog := parent.Child("deploy", "network", "testnet")
//
//	parent.Info("starting")
//	cronLog.Info("balance checked")
//	deployLog.Info("contract deployed", "address", "0x...")
//
//	// prints the following
//	// INFO helios: starting
//	// INFO helios/cron: balance checked
//	// INFO helios/deploy: contract deployed network=testnet address=0x...
func (logger *Logger) Child(prefix string, kv ...interface{}) *Logger {
	child := logger.logger.With(kv...)
	child.SetPrefix(logger.logger.GetPrefix() + "/" + prefix)
	logger.style.apply(child)

	return &Logger{
		logger: child,
		style:  logger.style,
	}
}

// Discard returns a logger that writes nowhere. Used by tests of the packages.
func Discard() *Logger {
	logger := log.NewWithOptions(io.Discard, log.Options{})
	return &Logger{logger: logger}
}
