// Package logging builds the logr.Logger used by the regdns command.
package logging

import (
	"errors"
	"io"
	"log/slog"

	"github.com/go-logr/logr"
)

// Verbosity selects which messages reach the output.
type Verbosity int

const (
	// Quiet only shows warnings and errors.
	Quiet Verbosity = iota
	// Normal adds the outcome of a run, logged at V(0).
	Normal
	// Verbose adds progress messages logged at V(1).
	Verbose
	// Debug adds request and response detail logged at V(2) and above.
	Debug
)

// Level maps v onto slog levels. logr's V(n) is slog level -n.
func (v Verbosity) Level() slog.Level {
	switch v {
	case Quiet:
		return slog.LevelWarn
	case Verbose:
		return slog.Level(-1)
	case Debug:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// New constructs a logger of the given format (human|text|json) writing to w.
func New(format string, v Verbosity, w io.Writer) (logr.Logger, error) {
	h, err := handler(format, v.Level(), w)
	if err != nil {
		return logr.Discard(), err
	}
	return logr.FromSlogHandler(h), nil
}

func handler(format string, level slog.Leveler, w io.Writer) (slog.Handler, error) {
	switch format {
	case "", "human":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: dropTime}), nil
	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	default:
		return nil, errors.New("unsupported log format: " + format)
	}
}

// dropTime removes the timestamp from human output.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
