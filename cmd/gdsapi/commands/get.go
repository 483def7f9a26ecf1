package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsclient"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var (
		relativeTo string
		optional   bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Fetch a JSON document",
		Long:  "Fetch a JSON document from any GOV.UK API and print it",
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

			config.WebURLsRelativeTo = relativeTo

			var opts []gdsapi.RequestOption
			if noCache {
				opts = append(opts, gdsapi.WithoutCache())
			}

			client := gdsclient.NewJSONClient(config)

			get := client.GetJSON
			if optional {
				get = client.GetJSONOptional
			}

			resp, err := get(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}

			return printResponse(cmd, format, resp)
		},
	}

	cmd.Flags().StringVar(&relativeTo, "relative-to", "", "rewrite web_url values under this origin to paths")
	cmd.Flags().BoolVar(&optional, "optional", false, "print nothing instead of failing on 404")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")

	return cmd
}

// printResponse prints resp, or nothing for an absent optional response.
func printResponse(cmd *cobra.Command, format string, resp *gdsapi.Response) error {
	if resp == nil {
		return nil
	}

	body, err := resp.JSON()
	if err != nil {
		return err
	}

	if len(body) == 0 {
		return nil
	}

	return writeJSONDocument(cmd.OutOrStdout(), format, body)
}
