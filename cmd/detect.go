package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go.aimuz.me/transpeak/langdetect"
)

var detectCmd = &cobra.Command{
	Use:   "detect <text>",
	Short: "Detect the language of text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		code, name := langdetect.Detect(strings.Join(args, " "))
		target := "en"
		if t, ok := cfg.DefaultLanguages[code]; ok {
			target = t
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tdefault target: %s\n", code, name, target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
