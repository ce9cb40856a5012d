package moderation

import (
	"net/url"
	"regexp"
	"strings"
)

// linkPattern finds http(s) URLs; trailing punctuation is trimmed afterwards
var linkPattern = regexp.MustCompile(`(?i)https?://[^\s<>"'\x{3000}「」（）]+`)

const trailingPunctuation = `.,;:!?)]}'"。、！？`

// DefaultAllowedHosts lists the video and streaming platforms links may point to
func DefaultAllowedHosts() []string {
	return []string{
		"youtube.com",
		"youtu.be",
		"nicovideo.jp",
		"nico.ms",
		"twitch.tv",
		"vimeo.com",
	}
}

// ExtractLinks returns every well-formed http(s) URL in body, in order
func ExtractLinks(body string) []*url.URL {
	var links []*url.URL
	for _, raw := range linkPattern.FindAllString(body, -1) {
		raw = strings.TrimRight(raw, trailingPunctuation)
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		links = append(links, u)
	}
	return links
}

// HostAllowed reports whether host equals or is a subdomain of an allowed
// host. A leading "www." is ignored.
func HostAllowed(host string, allowed []string) bool {
	host = normalizeHost(host)
	for _, a := range allowed {
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

// untrustedHosts returns the distinct hosts in links that are not allowed
func untrustedHosts(links []*url.URL, allowed []string) []string {
	var hosts []string
	seen := make(map[string]bool)
	for _, u := range links {
		host := normalizeHost(u.Hostname())
		if seen[host] || HostAllowed(host, allowed) {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	return strings.TrimPrefix(host, "www.")
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = normalizeHost(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
