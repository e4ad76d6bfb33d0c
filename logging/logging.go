// Package logging builds the slog logger shared by the binaries.
package logging

import (
	"flag"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

// Options select the handler and the minimum level.
type Options struct {
	JSON  bool
	Level string
}

// RegisterFlags binds -log-json and -log-level.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&o.JSON, "log-json", false, "Log as JSON lines instead of text")
	fs.StringVar(&o.Level, "log-level", "info", "Minimum log level: debug, info, warn or error")
}

// New returns a logger writing to w.
func New(w io.Writer, o Options) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(o.Level))); err != nil {
		return nil, errors.Wrapf(err, "log level %q", o.Level)
	}
	opts := &slog.HandlerOptions{Level: level}
	if o.JSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
