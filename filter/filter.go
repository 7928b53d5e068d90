// Package filter decides, per outbound browser request, whether the request
// is aborted or allowed to continue unmodified.
//
// Rules are independent predicates evaluated in registration order; a
// request is aborted as soon as one of them matches. Resource type is never
// consulted, only the request URL.
package filter

import (
	"log/slog"
	"net/url"
	"path"
	"strings"
)

// Rule is a single interception predicate.
type Rule interface {
	// Name identifies the rule in logs.
	Name() string

	// Match reports whether the request to u must be aborted.
	Match(u *url.URL) bool
}

// mediaExtensions are matched against the final path segment, case-insensitively.
var mediaExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".svg":  {},
	".mp3":  {},
	".mp4":  {},
	".avi":  {},
	".flac": {},
	".ogg":  {},
	".wav":  {},
	".webm": {},
}

// adDomains is the fixed deny-list of ad and tracking hosts. A hostname is
// blocked when it contains any entry as a substring.
var adDomains = []string{
	"doubleclick.net",
	"adservice.google.com",
	"googlesyndication.com",
	"googletagservices.com",
	"googletagmanager.com",
	"google-analytics.com",
	"adsystem.com",
	"adservice.com",
	"adnxs.com",
	"ads-twitter.com",
	"facebook.net",
	"fbcdn.net",
	"amazon-adsystem.com",
}

// MediaRule aborts image, audio and video downloads by file extension.
type MediaRule struct{}

func (MediaRule) Name() string { return "media" }

func (MediaRule) Match(u *url.URL) bool {
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return false
	}
	_, ok := mediaExtensions[ext]
	return ok
}

// AdDomainRule aborts requests to known ad and tracking hosts.
type AdDomainRule struct{}

func (AdDomainRule) Name() string { return "ad-domain" }

func (AdDomainRule) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range adDomains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// Filter is an ordered set of rules. The zero value allows everything.
type Filter struct {
	rules []Rule
}

// New builds the standard filter: the media rule first (only when
// blockMedia is set), then the ad-domain rule, which is always active.
func New(blockMedia bool) *Filter {
	var rules []Rule
	if blockMedia {
		rules = append(rules, MediaRule{})
	}
	rules = append(rules, AdDomainRule{})
	return &Filter{rules: rules}
}

// NewWithRules builds a filter from an explicit rule list, evaluated in order.
func NewWithRules(rules ...Rule) *Filter {
	return &Filter{rules: rules}
}

// Rules returns the rule names in evaluation order.
func (f *Filter) Rules() []string {
	names := make([]string, len(f.rules))
	for i, r := range f.rules {
		names[i] = r.Name()
	}
	return names
}

// Decide reports whether rawURL must be aborted and, if so, which rule
// matched. URLs that cannot be parsed are allowed.
func (f *Filter) Decide(rawURL string) (rule string, blocked bool) {
	if f == nil || len(f.rules) == 0 {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		slog.Debug("filter: unparsable request URL, allowing", "url", rawURL, "error", err)
		return "", false
	}
	for _, r := range f.rules {
		if r.Match(u) {
			return r.Name(), true
		}
	}
	return "", false
}
