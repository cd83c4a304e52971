package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// canonicalHeaders are the security headers every response is graded on,
// in report order.
var canonicalHeaders = []string{
	"Content-Security-Policy",
	"Strict-Transport-Security",
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Referrer-Policy",
}

// six months, the minimum HSTS max-age worth deploying
const minHSTSMaxAge = 15768000

// checkSecurityHeaders grades each canonical header and returns the checks
// plus the present/total ratio.
func checkSecurityHeaders(headers http.Header) ([]models.HeaderCheck, float64) {
	checks := make([]models.HeaderCheck, 0, len(canonicalHeaders))
	present := 0

	for _, name := range canonicalHeaders {
		value := headers.Get(name)
		check := models.HeaderCheck{Name: name, Present: value != ""}
		if check.Present {
			present++
			check.Value = value
			check.Weak, check.Note = gradeHeader(name, value)
		}
		checks = append(checks, check)
	}

	return checks, float64(present) / float64(len(canonicalHeaders))
}

// gradeHeader flags values that are present but neutered.
func gradeHeader(name, value string) (bool, string) {
	lower := strings.ToLower(value)
	switch name {
	case "Content-Security-Policy":
		if strings.Contains(lower, "unsafe-inline") || strings.Contains(lower, "unsafe-eval") {
			return true, "policy allows unsafe script execution"
		}
		if strings.Contains(lower, "default-src *") || strings.Contains(lower, "default-src  *") {
			return true, "default-src wildcard defeats the policy"
		}
	case "Strict-Transport-Security":
		if age, ok := parseMaxAge(lower); ok && age < minHSTSMaxAge {
			return true, "max-age below six months"
		}
	case "X-Frame-Options":
		if lower != "deny" && lower != "sameorigin" {
			return true, "unrecognized framing policy"
		}
	case "X-Content-Type-Options":
		if lower != "nosniff" {
			return true, "value must be nosniff"
		}
	case "Referrer-Policy":
		if lower == "unsafe-url" {
			return true, "full URL leaked cross-origin"
		}
	}
	return false, ""
}

func parseMaxAge(value string) (int, bool) {
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if rest, found := strings.CutPrefix(part, "max-age="); found {
			age, err := strconv.Atoi(rest)
			if err != nil {
				return 0, false
			}
			return age, true
		}
	}
	return 0, false
}
