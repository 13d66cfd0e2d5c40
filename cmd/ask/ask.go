// Package ask implements the ask command.
package ask

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bioscout/bioscout/internal/app"
	"github.com/bioscout/bioscout/internal/cli"
	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/feedback"
)

// Command creates the ask command.
func Command(settings *conf.Settings) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about biodiversity in Pakistan",
		Long:  "Forward a question to the configured chat-completion service. Requires OPENROUTER_API_KEY or qa.apikey.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), settings, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			answer, err := a.Service.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return cli.Fail(feedback.OpAsk, err)
			}

			text := answer.Text
			if !raw {
				text = cli.Markdown(text)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the answer without markdown rendering")
	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("model", "", "Chat-completion model")
	if err := viper.BindPFlag("qa.model", cmd.Flags().Lookup("model")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
