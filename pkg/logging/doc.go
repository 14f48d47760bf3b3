// Package logging configures the structured loggers used across netmock.
//
// It wraps log/slog so that every component logs the same way:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//	logger.Info("archive saved", "key", key, "entries", n)
//
// Setting Config.File additionally writes every record to a size-rotated
// log file, which is what the CLI's --log-file flag uses for long-running
// proxy sessions.
//
// Components accept a *slog.Logger in their options. If none is provided,
// they fall back to Nop.
package logging
