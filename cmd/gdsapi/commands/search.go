package commands

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsclient"
)

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	var (
		endpoint string
		pageSize int
		limit    int
		fields   []string
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search GOV.UK",
		Long:  "Run a site search, fetching results in batches until --limit is reached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, logger, err := newServiceClient(cmd, gdsclient.Search, endpoint)
			if err != nil {
				return err
			}

			defer func() { _ = logger.Close() }()

			params := url.Values{"q": {args[0]}}
			for _, field := range fields {
				params.Add("fields[]", field)
			}

			var results []any

			for result, err := range client.Search().SearchEnum(cmd.Context(), params, pageSize) {
				if err != nil {
					return err
				}

				results = append(results, result)

				if limit > 0 && len(results) >= limit {
					break
				}
			}

			body, err := json.Marshal(results)
			if err != nil {
				return fmt.Errorf("encoding results: %w", err)
			}

			return writeJSONDocument(cmd.OutOrStdout(), format, body)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "search API URL (default is discovered)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "results per request (default 100)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many results (0 means all)")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to return for each result")

	return cmd
}
