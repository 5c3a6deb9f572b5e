package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.aimuz.me/transpeak/translator"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List languages supported by the translation provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provider, closeProvider, err := buildProvider(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer closeProvider()

		langs, err := provider.SupportedLanguages(cmd.Context())
		if err != nil {
			return fmt.Errorf("list languages: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, l := range translator.SortLanguages(langs) {
			fmt.Fprintf(tw, "%s\t%s\n", l, l.DisplayName())
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
