package web

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// secretPatterns are compiled once. Each match in a response body becomes a
// pattern-kind sensitive match; the raw matched text never leaves the probe.
var secretPatterns = map[string]*regexp.Regexp{
	"aws_access_key":  regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	"google_api_key":  regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`),
	"private_key":     regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`),
	"jwt":             regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`),
	"generic_api_key": regexp.MustCompile(`(?i)\b(?:api[_-]?key|apikey|secret[_-]?key)\s*[:=]\s*['"][0-9a-zA-Z\-_]{16,}['"]`),
	"password_field":  regexp.MustCompile(`(?i)\bpassword\s*[:=]\s*['"][^'"]{4,}['"]`),
}

// scanForSecrets looks for credential-shaped strings in a response body.
func scanForSecrets(body []byte) []models.SensitiveMatch {
	text := string(body)
	var matches []models.SensitiveMatch
	for name, pattern := range secretPatterns {
		if loc := pattern.FindStringIndex(text); loc != nil {
			matches = append(matches, models.SensitiveMatch{
				Kind:    "pattern",
				Pattern: name,
				Detail:  "credential-shaped string in response body",
			})
		}
	}
	return matches
}

type cmsSignature struct {
	name      string
	markers   []string
	generator *regexp.Regexp
	// oldest version still receiving security fixes
	minSupported string
}

var cmsSignatures = []cmsSignature{
	{
		name:         "WordPress",
		markers:      []string{"wp-content/", "wp-includes/"},
		generator:    regexp.MustCompile(`<meta name="generator" content="WordPress ([0-9.]+)"`),
		minSupported: "6.0.0",
	},
	{
		name:         "Joomla",
		markers:      []string{"/media/jui/", "joomla"},
		generator:    regexp.MustCompile(`<meta name="generator" content="Joomla! - Open Source Content Management(?: - Version ([0-9.]+))?"`),
		minSupported: "4.0.0",
	},
	{
		name:         "Drupal",
		markers:      []string{"drupal.js", "/sites/default/files/"},
		generator:    regexp.MustCompile(`<meta name="Generator" content="Drupal ([0-9.]+)`),
		minSupported: "10.0.0",
	},
	{
		name:    "Magento",
		markers: []string{"/skin/frontend/", "mage/cookies"},
	},
	{
		name:    "Shopify",
		markers: []string{"cdn.shopify.com"},
	},
	{
		name:    "Wix",
		markers: []string{"wix.com", "wixstatic.com"},
	},
}

// detectCMS fingerprints the content management system from body markers
// and headers, then compares any version the site leaks against the oldest
// supported release.
func detectCMS(headers http.Header, body []byte) *models.CMSInfo {
	text := strings.ToLower(string(body))
	generatorSource := string(body)
	if powered := headers.Get("X-Powered-By"); powered != "" {
		text += " " + strings.ToLower(powered)
	}

	for _, sig := range cmsSignatures {
		matched := false
		for _, marker := range sig.markers {
			if strings.Contains(text, marker) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		info := &models.CMSInfo{Name: sig.name}
		if sig.generator != nil {
			if m := sig.generator.FindStringSubmatch(generatorSource); len(m) > 1 && m[1] != "" {
				info.Version = m[1]
				info.Outdated = versionOutdated(m[1], sig.minSupported)
			}
		}
		return info
	}
	return nil
}

func versionOutdated(version, minSupported string) bool {
	if minSupported == "" {
		return false
	}
	current, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	floor, err := semver.NewVersion(minSupported)
	if err != nil {
		return false
	}
	return current.LessThan(floor)
}
