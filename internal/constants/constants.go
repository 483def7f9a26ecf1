package constants

import "time"

// ConfigDirPerm is the permission for directories the CLI creates.
const ConfigDirPerm = 0750

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 4 * time.Second

	// ShortHTTPTimeout is used for quick operations such as connecting to
	// a cache backend.
	ShortHTTPTimeout = 2 * time.Second

	// ExtendedHTTPTimeout is used for uploads.
	ExtendedHTTPTimeout = 30 * time.Second
)

// Retry limits. Retrying is off unless a caller opts in.
const (
	// DefaultRetryMax is the number of retries the client makes by default.
	DefaultRetryMax = 0

	// LowRetryMax is the retry count suggested when retries are enabled.
	LowRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 200 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 2 * time.Second
)

// Buffers.
const (
	// SmallBufferSize is used for page streaming channels.
	SmallBufferSize = 10

	// MaxErrorBodyLog bounds how much of an error body reaches the logs.
	MaxErrorBodyLog = 1024
)

// Cache sizing.
const (
	// DefaultCacheSize is the default number of responses kept in memory.
	DefaultCacheSize = 100

	// DefaultCacheCleanupInterval is how often expired entries are swept
	// from the memory cache.
	DefaultCacheCleanupInterval = time.Minute

	// DefaultCacheTTL is the bucket TTL for shared caches.
	DefaultCacheTTL = 15 * time.Minute
)

// Output formats.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Service discovery.
const (
	// EnvAppDomain holds the domain services are published under.
	EnvAppDomain = "GOVUK_APP_DOMAIN"

	// EnvServicePrefix and EnvServiceSuffix wrap an upper-cased service
	// name to form a per-service URL override, e.g. PLEK_SERVICE_SEARCH_URI.
	EnvServicePrefix = "PLEK_SERVICE_"
	EnvServiceSuffix = "_URI"

	// EnvBearerTokenSuffix follows an upper-cased service name to form its
	// token variable, e.g. PUBLISHING_API_BEARER_TOKEN.
	EnvBearerTokenSuffix = "_BEARER_TOKEN"

	// DefaultAppDomain is used when no domain is configured.
	DefaultAppDomain = "dev.gov.uk"

	// EnvAppDomainExternal holds the public domain, used for external URLs.
	EnvAppDomainExternal = "GOVUK_APP_DOMAIN_EXTERNAL"

	// EnvWebsiteRoot is the public site origin web_url values are made
	// relative to.
	EnvWebsiteRoot = "GOVUK_WEBSITE_ROOT"

	// EnvAppScheme overrides DefaultScheme.
	EnvAppScheme = "GOVUK_APP_SCHEME"

	// DefaultScheme is used for discovered service URLs.
	DefaultScheme = "https"
)

// Display.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// StringTruncationLength is the default length for truncating cells.
	StringTruncationLength = 80
)
