// Package cmd implements the transpeak command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BuildInfo describes the binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	cfgFile string
	verbose bool

	// v holds flag and environment overrides layered over the config file.
	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "transpeak",
	Short: "Live speech and text translation",
	Long: `Translate typed or spoken text as you go and speak the result in the
target language.

Text is translated after a short pause in typing or speech. Changing either
language starts a fresh translation session.

Use "transpeak run" to start an interactive session.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute runs the root command.
func Execute(info BuildInfo) {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", info.Version, info.Commit, info.Date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default is <user config dir>/transpeak/config.json)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("provider", "", "Translation provider: llm or google")
	pf.String("source", "", "Source language, e.g. en-US")
	pf.String("target", "", "Target language, e.g. hi-IN")

	for _, name := range []string{"provider", "source", "target"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	// TRANSPEAK_OPENAI_API_KEY, TRANSPEAK_GOOGLE_API_KEY, TRANSPEAK_GOOGLE_CREDENTIALS
	v.SetEnvPrefix("transpeak")
	v.AutomaticEnv()
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	w := os.Stderr
	slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	})))
}
