// Package observe implements the observe command for adding and listing
// observations.
package observe

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bioscout/bioscout/internal/app"
	"github.com/bioscout/bioscout/internal/cli"
	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/feedback"
	"github.com/bioscout/bioscout/internal/observation"
)

// Command creates the observe command and its add and list subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Add or list biodiversity observations",
	}
	cmd.AddCommand(addCommand(settings), listCommand(settings))
	return cmd
}

type addOptions struct {
	species  string
	date     string
	location string
	notes    string
	image    string
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var opts addOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a new observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, settings, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.species, "species", "s", "", "Species name")
	cmd.Flags().StringVar(&opts.date, "date", "", "Date observed, YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&opts.location, "location", "l", "", "Where the observation was made")
	cmd.Flags().StringVarP(&opts.notes, "notes", "n", "", "Free-text notes")
	cmd.Flags().StringVarP(&opts.image, "image", "i", "", "Path of a photo to attach")
	return cmd
}

func runAdd(cmd *cobra.Command, settings *conf.Settings, opts addOptions) error {
	date, err := app.ParseObservedDate(opts.date)
	if err != nil {
		return cli.Fail(feedback.OpSubmit, err)
	}

	sub := app.Submission{
		SpeciesName:  opts.species,
		DateObserved: date,
		Location:     opts.location,
		Notes:        opts.notes,
	}
	if opts.image != "" {
		img, err := cli.ReadImage(opts.image)
		if err != nil {
			return cli.Fail(feedback.OpSubmit, err)
		}
		sub.Image = img
	}

	a, err := app.New(cmd.Context(), settings, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.Service.SubmitObservation(cmd.Context(), sub)
	if err != nil {
		return cli.Fail(feedback.OpSubmit, err)
	}

	out := cmd.OutOrStdout()
	cli.PrintMessage(out, feedback.Submitted())
	fmt.Fprint(out, cli.Table(tableHeaders, [][]string{row(saved)}))
	return nil
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all observations in submission order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), settings, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			all, err := a.Service.ListObservations(cmd.Context())
			if err != nil {
				return cli.Fail(feedback.OpList, err)
			}
			return render(cmd.OutOrStdout(), all, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print observations as JSON")
	return cmd
}

var tableHeaders = []string{"ID", "Species", "Date", "Location", "Image", "Notes"}

func render(w io.Writer, all []observation.Observation, asJSON bool) error {
	if asJSON {
		if all == nil {
			all = []observation.Observation{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	if len(all) == 0 {
		cli.PrintMessage(w, feedback.Message{Level: feedback.LevelInfo, Text: "No observations yet."})
		return nil
	}
	rows := make([][]string, 0, len(all))
	for _, o := range all {
		rows = append(rows, row(o))
	}
	_, err := fmt.Fprint(w, cli.Table(tableHeaders, rows))
	return err
}

func row(o observation.Observation) []string {
	return []string{strconv.Itoa(o.ID), o.SpeciesName, o.DateObserved.String(), o.Location, o.ImageURL, o.Notes}
}
