// Package log provides structured logging handler construction for
// cmd/tagpackctl, built on [log/slog].
//
// It supports two output formats ([FormatJSON] and [FormatLogfmt]) and the
// four standard [log/slog] severity levels. Use [Config] with CLI flag
// integration via [github.com/spf13/pflag] and shell completion support via
// [github.com/spf13/cobra]:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//	cfg.RegisterCompletions(rootCmd)
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
package log
