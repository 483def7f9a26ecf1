package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsclient"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var (
		all      bool
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "list URL",
		Short: "Fetch a paginated collection",
		Long:  "Fetch a paginated collection, following Link headers with --all",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			config, logger, err := clientConfig(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = logger.Close() }()

			first, err := gdsclient.NewJSONClient(config).GetList(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			results := first.Results()

			if all {
				results, err = gdsapi.FetchAllPages[any](cmd.Context(), first, &gdsapi.PaginationOptions{MaxPages: maxPages})
				if err != nil {
					return err
				}
			}

			body, err := json.Marshal(results)
			if err != nil {
				return fmt.Errorf("encoding results: %w", err)
			}

			err = writeJSONDocument(cmd.OutOrStdout(), format, body)
			if err != nil {
				return err
			}

			if !all && first.HasNextPage() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "more results at %s\n", first.Links().Href(gdsapi.RelNext))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "follow next links and print every page")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages with --all (0 means no limit)")

	return cmd
}
