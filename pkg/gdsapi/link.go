package gdsapi

import (
	"strings"
)

// Link relations used for pagination.
const (
	RelNext     = "next"
	RelPrevious = "previous"
	RelPrev     = "prev"
	RelSelf     = "self"
)

// Link is one entry of a Link header.
type Link struct {
	Href   string            `json:"href"             yaml:"href"`
	Rel    string            `json:"rel"              yaml:"rel"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Links maps relation name to link. A link carrying several space
// separated relations is stored under each of them.
type Links map[string]Link

// Get returns the link for a relation.
func (l Links) Get(rel string) (Link, bool) {
	link, ok := l[strings.ToLower(rel)]

	return link, ok
}

// Href returns the URL for a relation, or "".
func (l Links) Href(rel string) string {
	link, ok := l.Get(rel)
	if !ok {
		return ""
	}

	return link.Href
}

// ParseLinkHeader parses a Link header of the form
// `<url>; rel="next", <url>; rel="previous"`. Malformed entries are skipped.
func ParseLinkHeader(header string) Links {
	links := make(Links)

	for _, entry := range splitLinkEntries(header) {
		entry = strings.TrimSpace(entry)
		if !strings.HasPrefix(entry, "<") {
			continue
		}

		end := strings.Index(entry, ">")
		if end < 0 {
			continue
		}

		link := Link{
			Href:   strings.TrimSpace(entry[1:end]),
			Params: make(map[string]string),
		}

		for _, param := range strings.Split(entry[end+1:], ";") {
			name, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found {
				continue
			}

			name = strings.ToLower(strings.TrimSpace(name))
			value = strings.Trim(strings.TrimSpace(value), `"`)
			link.Params[name] = value
		}

		rels := strings.Fields(link.Params["rel"])
		for _, rel := range rels {
			l := link
			l.Rel = strings.ToLower(rel)
			links[l.Rel] = l
		}
	}

	if prev, ok := links[RelPrev]; ok {
		if _, hasPrevious := links[RelPrevious]; !hasPrevious {
			links[RelPrevious] = prev
		}
	}

	return links
}

// splitLinkEntries splits on commas outside of <...> and quoted strings,
// since URLs may legitimately contain commas.
func splitLinkEntries(header string) []string {
	var (
		entries []string
		start   int
		inURL   bool
		inQuote bool
	)

	for i, r := range header {
		switch {
		case r == '<' && !inQuote:
			inURL = true
		case r == '>' && !inQuote:
			inURL = false
		case r == '"' && !inURL:
			inQuote = !inQuote
		case r == ',' && !inURL && !inQuote:
			entries = append(entries, header[start:i])
			start = i + 1
		}
	}

	if start < len(header) {
		entries = append(entries, header[start:])
	}

	return entries
}
