package extractor

import (
	"net/url"
	"strings"
)

// DefaultBaseURL is the marketplace origin used when none is configured.
const DefaultBaseURL = "https://www.upwork.com"

// Site locates pages on the marketplace.
type Site struct {
	BaseURL string
}

// NewSite returns a Site rooted at baseURL, falling back to DefaultBaseURL.
func NewSite(baseURL string) Site {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Site{BaseURL: baseURL}
}

// SearchURL returns the search results page for a topic.
func (s Site) SearchURL(topic string) string {
	return s.base() + "/nx/search/jobs/?q=" + url.QueryEscape(topic)
}

// Resolve turns a listing href into an absolute URL on the marketplace.
func (s Site) Resolve(href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return s.base() + "/" + strings.TrimLeft(href, "/")
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(s.base() + "/")
	if err != nil {
		return s.base() + "/" + strings.TrimLeft(href, "/")
	}
	return base.ResolveReference(ref).String()
}

func (s Site) base() string {
	if s.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(s.BaseURL, "/")
}
