// Package identify implements the identify command.
package identify

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bioscout/bioscout/internal/app"
	"github.com/bioscout/bioscout/internal/classifier"
	"github.com/bioscout/bioscout/internal/cli"
	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/feedback"
)

// Command creates the identify command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify <image>",
		Short: "Suggest a species for a photo",
		Long:  "Send a photo to the image-classification service and print its top species suggestion.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := cli.ReadImage(args[0])
			if err != nil {
				return cli.Fail(feedback.OpIdentify, err)
			}

			a, err := app.New(cmd.Context(), settings, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			suggestion, err := a.Service.Identify(cmd.Context(), *img)
			if errors.Is(err, classifier.ErrNoSuggestion) {
				cli.PrintMessage(cmd.OutOrStdout(), feedback.FromError(feedback.OpIdentify, err))
				return nil
			}
			if err != nil {
				return cli.Fail(feedback.OpIdentify, err)
			}
			cli.PrintMessage(cmd.OutOrStdout(), feedback.Suggested(suggestion))
			return nil
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("endpoint", "", "Image-classification endpoint URL")
	if err := viper.BindPFlag("classifier.endpoint", cmd.Flags().Lookup("endpoint")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
