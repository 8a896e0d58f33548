// Package logging builds the slog loggers used by hex-tool.
//
// Logs always go to stderr (or a caller supplied writer): stdout carries the
// MCP protocol stream and must never receive log output.
//
//	logger := logging.New(logging.Config{
//		Level:  slog.LevelDebug,
//		Format: logging.FormatJSON,
//	})
//
// Text output is colorized when the writer is a terminal. Tests use [ForTest]
// so messages show up in the test log on failure.
package logging
