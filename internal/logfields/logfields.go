// Package logfields holds the attribute keys shared by build logs.
package logfields

import (
	"log/slog"
	"time"
)

const (
	KeyStage      = "stage"
	KeyFile       = "file"
	KeyItem       = "item"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Stage(name string) slog.Attr  { return slog.String(KeyStage, name) }
func File(name string) slog.Attr   { return slog.String(KeyFile, name) }
func Item(slug string) slog.Attr   { return slog.String(KeyItem, slug) }
func URL(u string) slog.Attr       { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr      { return slog.String(KeyPath, p) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
