package httpds

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"
)

// filenameCleaner replaces sequences of non-alphanumeric characters with "_".
var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9.]+`)

// HashString returns a stable xxh3 hex digest of s.
func HashString(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(s))
}

// FilenameFromURL derives a file name from the last path segment of rawURL.
// URLs without a usable segment fall back to "download_<hash>.csv".
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		base := path.Base(u.Path)
		if base != "." && base != "/" && base != "" {
			if clean := strings.Trim(filenameCleaner.ReplaceAllString(base, "_"), "_"); clean != "" {
				return clean
			}
		}
	}
	return "download_" + HashString(rawURL) + ".csv"
}

// Source is a datasource.Source backed by an HTTP GET.
type Source struct {
	client *Client
	url    string
}

// NewSource binds client to url.
func NewSource(client *Client, rawURL string) *Source {
	return &Source{client: client, url: rawURL}
}

// Name implements datasource.Source.
func (s *Source) Name() string { return FilenameFromURL(s.url) }

// Open implements datasource.Source.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// IsURL reports whether s looks like an http(s) URL.
func IsURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
