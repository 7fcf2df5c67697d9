package blog

import "log/slog"

// SL returns log extended with attrs for the given slot period and thread.
// Most graph log lines want exactly these two fields.
func SL(log *slog.Logger, period uint64, thread uint8) *slog.Logger {
	return log.With("period", period, "thread", thread)
}

// SLE is [SL] with an error attr added.
func SLE(log *slog.Logger, period uint64, thread uint8, e error) *slog.Logger {
	return log.With("period", period, "thread", thread, "err", e)
}
