package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsclient"
)

// NewContentCommand creates the content command.
func NewContentCommand() *cobra.Command {
	var (
		endpoint string
		optional bool
	)

	cmd := &cobra.Command{
		Use:   "content BASE_PATH",
		Short: "Fetch a content item",
		Long:  "Fetch a published content item from the content store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, logger, err := newServiceClient(cmd, gdsclient.ContentStore, endpoint)
			if err != nil {
				return err
			}

			defer func() { _ = logger.Close() }()

			store := client.ContentStore()

			fetch := store.ContentItem
			if optional {
				fetch = store.ContentItemOptional
			}

			resp, err := fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printResponse(cmd, format, resp)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "content store URL (default is discovered)")
	cmd.Flags().BoolVar(&optional, "optional", false, "print nothing instead of failing on 404")

	return cmd
}

// newServiceClient builds a discovered client, pinning service to endpoint
// when given.
func newServiceClient(cmd *cobra.Command, service, endpoint string) (gdsapi.Client, *cliLogger, error) {
	config, logger, err := clientConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	env := viper.New()
	env.AutomaticEnv()

	if domain := viper.GetString(KeyAppDomain); domain != "" {
		env.Set(constants.EnvAppDomain, domain)
	}

	opts := []gdsclient.Option{gdsclient.WithEnvironment(env)}

	if endpoint != "" {
		opts = append(opts, gdsclient.WithEndpoint(service, endpoint))
	}

	if token := config.BearerToken; token != "" {
		opts = append(opts, gdsclient.WithBearerToken(service, token))
	}

	client, err := gdsclient.New(config, opts...)
	if err != nil {
		_ = logger.Close()

		return nil, nil, err
	}

	return client, logger, nil
}
