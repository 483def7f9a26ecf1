package client

import (
	"net/url"
	"strings"
)

// withQuery appends params to rawURL, keeping any query it already has.
func withQuery(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}

	return rawURL + sep + params.Encode()
}

// escapePath escapes each segment of a base path, keeping the slashes.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/")
}
