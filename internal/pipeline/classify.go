package pipeline

import (
	"net/url"
	"strings"
)

// urlDepartmentRules maps URL path fragments to department slugs. Order
// matters: the first matching rule wins.
var urlDepartmentRules = []struct {
	pattern string
	slug    string
}{
	{"/rma/", "rma"},
	{"/permits", "rma"},
	{"/planning", "rma"},
	{"/assessor/", "clerk"},
	{"/clerk", "clerk"},
	{"/sheriff/", "sheriff"},
	{"/fire/", "fire"},
	{"/animal", "animal"},
	{"/hrd/", "general"},
	{"/board/", "general"},
	{"/purchasing/", "general"},
	{"/county/", "general"},
	{"/tcict/", "general"},
}

// hhsaDomains host pages that always belong to health and human services,
// regardless of path.
var hhsaDomains = []string{"tchhsa.org"}

// ClassifyDepartment maps a page URL to a department slug. Unrecognized
// URLs fall into the general bucket.
func ClassifyDepartment(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "general"
	}

	host := parsed.Hostname()
	for _, domain := range hhsaDomains {
		if strings.Contains(host, domain) {
			return "hhsa"
		}
	}

	path := strings.ToLower(parsed.Path)
	for _, rule := range urlDepartmentRules {
		if strings.Contains(path, rule.pattern) {
			return rule.slug
		}
	}

	return "general"
}
