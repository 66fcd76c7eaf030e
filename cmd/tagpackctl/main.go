// Package main provides the CLI entry point for tagpackctl, a tool for
// inspecting and converting MessagePack documents.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kfsheep/tagpack"
	tlog "github.com/kfsheep/tagpack/log"
)

func main() {
	logCfg := tlog.NewConfig()

	rootCmd := &cobra.Command{
		Use:           "tagpackctl",
		Short:         "Inspect and convert MessagePack documents",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			handler, err := logCfg.NewHandler(os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	logCfg.RegisterFlags(rootCmd.PersistentFlags())
	if err := logCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	rootCmd.AddCommand(newEncodeCmd(), newDecodeCmd(), newSchemaCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode",
		Short: "Read a JSON value from stdin and write its MessagePack encoding to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEncode(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runEncode(in io.Reader, out io.Writer) error {
	value, err := decodeJSON(in)
	if err != nil {
		return err
	}

	encoded, err := tagpack.Encode(value)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	slog.Debug("encoded document", "bytes", len(encoded))

	_, err = out.Write(encoded)
	return err
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode",
		Short: "Read a MessagePack document from stdin and write it as JSON to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDecode(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runDecode(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	value, err := tagpack.Decode(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	slog.Debug("decoded document", "bytes", len(data))

	if err := encodeJSON(out, value); err != nil {
		return err
	}
	_, err = out.Write([]byte("\n"))
	return err
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Read a MessagePack document from stdin and print its inferred shape",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runSchema(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	value, err := tagpack.Decode(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	_, err = fmt.Fprintln(out, describeShape(value))
	return err
}
