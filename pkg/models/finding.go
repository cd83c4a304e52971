package models

import (
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"
)

// Severity is the closed set of finding severities. Anything outside the set
// is rejected at the normalization boundary rather than scored as zero.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank orders severities from most to least severe, starting at 0.
// Unknown severities sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// MaxSeverity returns the most severe of the two.
func MaxSeverity(a, b Severity) Severity {
	if a.Rank() <= b.Rank() {
		return a
	}
	return b
}

// Category is the service category a finding belongs to.
type Category string

const (
	CategoryNetworkDefense   Category = "NetworkDefense"
	CategoryWebSecurity      Category = "WebSecurity"
	CategoryDataProtection   Category = "DataProtection"
	CategoryEndpointSecurity Category = "EndpointSecurity"
	CategoryAccessManagement Category = "AccessManagement"
)

// CategoryUnknown holds observations whose raw category failed validation.
// They stay visible in the findings list but never feed a category score.
const CategoryUnknown Category = "Unknown"

// AllCategories lists every scored category in report order.
var AllCategories = []Category{
	CategoryNetworkDefense,
	CategoryWebSecurity,
	CategoryDataProtection,
	CategoryEndpointSecurity,
	CategoryAccessManagement,
}

func (c Category) Valid() bool {
	if c == CategoryUnknown {
		return true
	}
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Confidence marks whether a finding was directly observed or inferred.
type Confidence string

const (
	ConfidenceDefinite  Confidence = "Definite"
	ConfidenceHeuristic Confidence = "Heuristic"
)

func (c Confidence) Valid() bool {
	return c == ConfidenceDefinite || c == ConfidenceHeuristic
}

// Finding is a single normalized security observation.
type Finding struct {
	ID          string     `json:"id" yaml:"id"`
	Category    Category   `json:"category" yaml:"category"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Severity    Severity   `json:"severity" yaml:"severity"`
	Remediation string     `json:"remediation" yaml:"remediation"`
	Confidence  Confidence `json:"confidence" yaml:"confidence"`
	Probe       ProbeName  `json:"probe" yaml:"probe"`
}

// Validate checks the enum fields and required text.
func (f *Finding) Validate() error {
	if !f.Severity.Valid() {
		return fmt.Errorf("invalid severity %q", f.Severity)
	}
	if !f.Category.Valid() {
		return fmt.Errorf("invalid category %q", f.Category)
	}
	if !f.Confidence.Valid() {
		return fmt.Errorf("invalid confidence %q", f.Confidence)
	}
	if f.Title == "" {
		return fmt.Errorf("finding has no title")
	}
	return nil
}

// FindingID derives a stable identifier from the category, title and
// distinguishing detail, so the same observation always gets the same ID.
func FindingID(category Category, title, detail string) string {
	h := xxh3.HashString(string(category) + "|" + title + "|" + detail)
	return fmt.Sprintf("%016x", h)
}

// SortFindings orders findings by category, then severity (most severe
// first), then title. Output ordering is deterministic for identical inputs.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Category != findings[j].Category {
			return findings[i].Category < findings[j].Category
		}
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity.Rank() < findings[j].Severity.Rank()
		}
		return findings[i].Title < findings[j].Title
	})
}

// FindingsByCategory groups findings preserving the sorted order inside
// each category.
func FindingsByCategory(findings []Finding) map[Category][]Finding {
	grouped := make(map[Category][]Finding)
	for _, f := range findings {
		grouped[f.Category] = append(grouped[f.Category], f)
	}
	return grouped
}
