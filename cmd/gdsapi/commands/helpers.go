package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

var jsonIndent = strings.Repeat(" ", constants.JSONIndentSize)

// Viper keys shared by the root flags and the commands.
const (
	KeyOutput        = "output"
	KeyVerbose       = "verbose"
	KeyBearerToken   = "bearer_token"
	KeyBasicUser     = "basic_user"
	KeyBasicPassword = "basic_password"
	KeyTimeout       = "timeout"
	KeyRetries       = "retries"
	KeyAppDomain     = "app_domain"
	KeyLogFile       = "log_file"
	KeyLogFormat     = "log_format"
	KeyCache         = "cache"
	KeyCacheBackend  = "cache_backend"
)

// LoadEnvFile adds the variables in path to the process environment.
// Variables already set are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	return nil
}

// outputFormat returns the validated --output value.
func outputFormat() (string, error) {
	format := viper.GetString(KeyOutput)
	if format == "" {
		return constants.FormatTable, nil
	}

	switch format {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, format)
	}
}

// clientConfig builds the client config for a command run. Callers close
// the returned logger when done, which also releases the cache.
func clientConfig(cmd *cobra.Command) (*gdsapi.Config, *cliLogger, error) {
	logger := newLogger(cmd.ErrOrStderr())

	cache, err := openCache(cmd, logger)
	if err != nil {
		_ = logger.Close()

		return nil, nil, err
	}

	config := &gdsapi.Config{
		Logger:      logger,
		Debug:       viper.GetBool(KeyVerbose),
		Cache:       cache,
		BearerToken: viper.GetString(KeyBearerToken),
		Timeout:     viper.GetDuration(KeyTimeout),
		RetryMax:    viper.GetInt(KeyRetries),
	}

	if user := viper.GetString(KeyBasicUser); user != "" {
		password, err := basicPassword(cmd)
		if err != nil {
			_ = logger.Close()

			return nil, nil, err
		}

		config.BasicAuth = &gdsapi.BasicAuth{User: user, Password: password}
	}

	return config, logger, nil
}

// cacheConfig reads the "cache" section of the config file. --cache
// overrides the backend.
func cacheConfig() (*gdsapi.CacheConfig, error) {
	config := gdsapi.DefaultCacheConfig()

	if viper.IsSet(KeyCache) {
		err := viper.UnmarshalKey(KeyCache, config)
		if err != nil {
			return nil, fmt.Errorf("reading cache config: %w", err)
		}
	}

	if backend := viper.GetString(KeyCacheBackend); backend != "" {
		config.Backend = gdsapi.CacheBackend(backend)
	}

	return config, nil
}

// openCache opens the configured cache for one command run.
func openCache(cmd *cobra.Command, logger *cliLogger) (gdsapi.Cache, error) {
	config, err := cacheConfig()
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	cache, err := gdsapi.NewCacheFromConfig(ctx, config)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("opening %s cache: %w", config.Backend, err)
	}

	logger.onClose(cancel)

	return cache, nil
}

// basicPassword reads the password from config, or prompts on a terminal.
func basicPassword(cmd *cobra.Command) (string, error) {
	if password := viper.GetString(KeyBasicPassword); password != "" {
		return password, nil
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec // stdin descriptor fits in int
	if !term.IsTerminal(fd) {
		return "", constants.ErrPasswordRequired
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

	password, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(cmd.ErrOrStderr())

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if len(password) == 0 {
		return "", constants.ErrPasswordRequired
	}

	return string(password), nil
}

// writeJSONDocument prints a JSON body in the selected format.
func writeJSONDocument(w io.Writer, format string, body []byte) error {
	switch format {
	case constants.FormatJSON:
		var buf bytes.Buffer

		err := json.Indent(&buf, body, "", jsonIndent)
		if err != nil {
			return fmt.Errorf("formatting JSON: %w", err)
		}

		buf.WriteByte('\n')

		_, err = w.Write(buf.Bytes())

		return err
	case constants.FormatYAML:
		var doc any

		err := json.Unmarshal(body, &doc)
		if err != nil {
			return fmt.Errorf("decoding JSON: %w", err)
		}

		return yaml.NewEncoder(w).Encode(doc)
	default:
		var doc any

		err := json.Unmarshal(body, &doc)
		if err != nil {
			return fmt.Errorf("decoding JSON: %w", err)
		}

		return writeDocumentTable(w, doc)
	}
}

// writeDocumentTable shows the top level of a JSON document as rows.
func writeDocumentTable(w io.Writer, doc any) error {
	switch v := doc.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		rows := make([][]string, 0, len(keys))
		for _, key := range keys {
			rows = append(rows, []string{key, cell(v[key])})
		}

		return renderTable(w, []string{"Key", "Value"}, rows)
	case []any:
		rows := make([][]string, 0, len(v))
		for i, item := range v {
			rows = append(rows, []string{strconv.Itoa(i), cell(item)})
		}

		return renderTable(w, []string{"#", "Value"}, rows)
	default:
		return renderTable(w, []string{"Value"}, [][]string{{cell(v)}})
	}
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)

	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}

	table.Header(headerCells...)

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}

		err := table.Append(cells...)
		if err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// cell renders a JSON value for a table, truncating long values.
func cell(value any) string {
	var s string

	switch v := value.(type) {
	case nil:
		return constants.NotAvailable
	case string:
		s = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		s = string(b)
	}

	if len(s) > constants.StringTruncationLength {
		s = s[:constants.StringTruncationLength-3] + "..."
	}

	return s
}
