package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
	quiet   bool
	config  string
}

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "speechcut",
		Short:        "Edit video by editing its transcript",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), flags))
		},
	}
	root.SilenceErrors = true

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "suppress non-error output")
	root.PersistentFlags().StringVar(&flags.config, "config", "", "settings file (default: user config dir)")

	root.AddCommand(
		newEditCmd(flags),
		newTranscribeCmd(flags),
		newModelsCmd(flags),
		newSettingsCmd(flags),
	)
	return root
}

func (f *rootFlags) level() slog.Level {
	switch {
	case f.quiet:
		return slog.LevelError
	case f.verbose:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func newLogger(w io.Writer, f *rootFlags) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: f.level()}))
}
