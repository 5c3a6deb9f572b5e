package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.aimuz.me/transpeak/config"
	"go.aimuz.me/transpeak/internal/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage credentials, translation profiles and speech settings",
	Long: `Edit the transpeak config file.

Credentials hold API keys. A translation profile picks a credential and a
model for the llm provider; the active profile is used by "transpeak run".
Speech settings pick the credential used to transcribe --audio-input.

Example:
  transpeak config credential add work --type openai --api-key sk-...
  transpeak config profile add fast --credential work --model gpt-4o-mini
  transpeak config speech set work`,
}

// openConfig loads the config file without flag or environment overrides,
// so that saving does not persist them.
func openConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show credentials, profiles and speech settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := openConfig()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "config\t%s\n", cfg.Path())
		fmt.Fprintf(w, "session\t%s -> %s, provider %s\n\n", cfg.Session.Source, cfg.Session.Target, cfg.Session.Provider)

		fmt.Fprintln(w, "CREDENTIAL\tTYPE\tKEY\tBASE URL")
		for _, c := range cfg.Credentials {
			key := maskKey(c.APIKey)
			if key == "" {
				key = c.CredentialsFile
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Type, key, c.BaseURL)
		}

		fmt.Fprintln(w, "\nPROFILE\tCREDENTIAL\tMODEL\tACTIVE")
		active := cfg.GetActiveTranslationProfile()
		for _, p := range cfg.TranslationProfiles {
			credName := p.CredentialID
			if c := cfg.GetCredential(p.CredentialID); c != nil {
				credName = c.Name
			}
			mark := ""
			if active != nil && active.ID == p.ID {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, credName, p.Model, mark)
		}

		if sc := cfg.GetSpeechConfig(); sc != nil {
			credName := sc.CredentialID
			if c := cfg.GetCredential(sc.CredentialID); c != nil {
				credName = c.Name
			}
			fmt.Fprintf(w, "\nspeech\t%s\t%s\n", credName, sc.Model)
		}
		return w.Flush()
	},
}

// maskKey keeps the last four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 4) + key[len(key)-4:]
}

// ─────────────────────────────────────────────────────────────────────────────
// Credentials
// ─────────────────────────────────────────────────────────────────────────────

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Add or remove API credentials",
}

var (
	credType            string
	credAPIKey          string
	credBaseURL         string
	credCredentialsFile string
)

var credentialAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an API credential",
	Long: `Add an API credential. Types: openai, openai-compatible (needs --base-url),
claude, google (--api-key or --credentials-file).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := openConfig()
		if err != nil {
			return err
		}

		cred, err := cfg.AddCredential(types.APICredential{
			Name:            args[0],
			Type:            credType,
			APIKey:          credAPIKey,
			BaseURL:         credBaseURL,
			CredentialsFile: credCredentialsFile,
		})
		if err != nil {
			return fmt.Errorf("add credential: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added credential %s (%s)\n", cred.Name, cred.Type)
		return nil
	},
}

var credentialRemoveCmd = &cobra.Command{
	Use:   "remove <name|id>",
	Short: "Remove an unused API credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := openConfig()
		if err != nil {
			return err
		}
		if err := cfg.RemoveCredential(args[0]); err != nil {
			return fmt.Errorf("remove credential: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed credential %s\n", args[0])
		return nil
	},
}

// ─────────────────────────────────────────────────────────────────────────────
// Translation profiles
// ─────────────────────────────────────────────────────────────────────────────

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Add or select LLM translation profiles",
}

var (
	profileCredential   string
	profileModel        string
	profileSystemPrompt string
	profileMaxTokens    int
	profileTemperature  float64
	profileUse          bool
)

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a translation profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if profileCredential == "" {
			return fmt.Errorf("--credential flag is required")
		}
		cfg, err := openConfig()
		if err != nil {
			return err
		}

		p, err := cfg.AddTranslationProfile(types.TranslationProfile{
			Name:         args[0],
			CredentialID: profileCredential,
			Model:        profileModel,
			SystemPrompt: profileSystemPrompt,
			MaxTokens:    profileMaxTokens,
			Temperature:  profileTemperature,
			Active:       profileUse,
		})
		if err != nil {
			return fmt.Errorf("add profile: %w", err)
		}

		state := ""
		if p.Active {
			state = " (active)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added profile %s%s\n", p.Name, state)
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name|id>",
	Short: "Make a translation profile active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := openConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseTranslationProfile(args[0]); err != nil {
			return fmt.Errorf("use profile: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Using profile %s\n", args[0])
		return nil
	},
}

// ─────────────────────────────────────────────────────────────────────────────
// Speech
// ─────────────────────────────────────────────────────────────────────────────

var speechCmd = &cobra.Command{
	Use:   "speech",
	Short: "Configure speech recognition",
}

var speechModel string

var speechSetCmd = &cobra.Command{
	Use:   "set <credential>",
	Short: "Transcribe --audio-input with the given OpenAI credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := openConfig()
		if err != nil {
			return err
		}
		if err := cfg.SetSpeechConfig(args[0], speechModel); err != nil {
			return fmt.Errorf("set speech config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Speech recognition uses %s (%s)\n", args[0], cfg.GetSpeechConfig().Model)
		return nil
	},
}

func init() {
	credentialAddCmd.Flags().StringVar(&credType, "type", config.CredentialOpenAI, "Credential type: openai, openai-compatible, claude or google")
	credentialAddCmd.Flags().StringVar(&credAPIKey, "api-key", "", "API key")
	credentialAddCmd.Flags().StringVar(&credBaseURL, "base-url", "", "Endpoint for openai-compatible or a custom claude URL")
	credentialAddCmd.Flags().StringVar(&credCredentialsFile, "credentials-file", "", "Google service account file")
	credentialCmd.AddCommand(credentialAddCmd, credentialRemoveCmd)

	profileAddCmd.Flags().StringVar(&profileCredential, "credential", "", "Credential name or ID (required)")
	profileAddCmd.Flags().StringVar(&profileModel, "model", "", "Model name (provider default if empty)")
	profileAddCmd.Flags().StringVar(&profileSystemPrompt, "system-prompt", "", "Custom system prompt")
	profileAddCmd.Flags().IntVar(&profileMaxTokens, "max-tokens", 0, "Max completion tokens")
	profileAddCmd.Flags().Float64Var(&profileTemperature, "temperature", 0, "Sampling temperature")
	profileAddCmd.Flags().BoolVar(&profileUse, "use", false, "Make the new profile active")
	profileCmd.AddCommand(profileAddCmd, profileUseCmd)

	speechSetCmd.Flags().StringVar(&speechModel, "model", "", "Transcription model (default whisper-1)")
	speechCmd.AddCommand(speechSetCmd)

	configCmd.AddCommand(configShowCmd, credentialCmd, profileCmd, speechCmd)
	rootCmd.AddCommand(configCmd)
}
