// Package extract pulls the embeddable sections out of submitted patent
// documents: title, abstract, and numbered claims.
//
// The heuristics are line based and deliberately forgiving; patent PDFs vary
// wildly in layout and the goal is a usable embedding passage, not a faithful
// parse.
package extract

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoText is returned when a document yields no usable text.
	ErrNoText = errors.New("no text extracted")

	// ErrMissingAbstract is returned when no abstract section could be
	// located. Without an abstract there is nothing worth embedding.
	ErrMissingAbstract = errors.New("missing abstract")
)

// Sections is the embeddable content of a patent document.
type Sections struct {
	Title    string
	Abstract string
	Claims   []string
}

// Content returns the passage that is embedded: the abstract followed by the
// claims.
func (s Sections) Content() string {
	if len(s.Claims) == 0 {
		return s.Abstract
	}
	return s.Abstract + " " + strings.Join(s.Claims, " ")
}

var (
	claimStartRe     = regexp.MustCompile(`^(1[.)]|claim\s*1)`)
	claimNumberRe    = regexp.MustCompile(`^\d+[.)]`)
	numberedLineRe   = regexp.MustCompile(`^\d+\s*\.`)
	classificationRe = regexp.MustCompile(`^\(?\s*\d+\s*\)?$|[A-Z]+\d+[A-Z]?\s*\d+/\d+`)
)

// sectionHeadings terminate the abstract.
var sectionHeadings = []string{
	"field of invention",
	"technical field",
	"field",
	"background",
	"summary",
	"claims",
	"description",
	"brief description",
	"detailed description",
}

// PatentSections applies the section heuristics to plain text. It returns
// ErrNoText for blank input and ErrMissingAbstract when no abstract could be
// found; a missing title falls back to "Untitled".
func PatentSections(text string) (Sections, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return Sections{}, ErrNoText
	}

	s := Sections{
		Title:    findTitle(lines),
		Abstract: findAbstract(lines),
		Claims:   findClaims(lines),
	}

	if s.Abstract == "" {
		return s, ErrMissingAbstract
	}

	return s, nil
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func findTitle(lines []string) string {
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "patent") && len(line) < 100 {
			return line
		}
	}
	return "Untitled"
}

func isSectionHeading(line string) bool {
	lower := strings.ToLower(line)
	for _, h := range sectionHeadings {
		if strings.HasPrefix(lower, h) {
			return true
		}
	}
	return false
}

func findAbstract(lines []string) string {
	start := -1
	var inline string

	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "abstract") {
			start = i + 1
			// The abstract may begin on the heading line itself.
			rest := strings.TrimLeft(line[len("abstract"):], " :-.")
			inline = strings.TrimSpace(rest)
			break
		}
	}

	if start < 0 {
		return ""
	}

	parts := make([]string, 0, 8)
	if inline != "" {
		parts = append(parts, inline)
	}

	for _, line := range lines[start:] {
		if isSectionHeading(line) || numberedLineRe.MatchString(line) {
			break
		}
		// Drop classification codes and bare figure numbers.
		if classificationRe.MatchString(line) {
			continue
		}
		parts = append(parts, line)
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

func findClaims(lines []string) []string {
	started := false
	var claimLines []string

	for _, line := range lines {
		lower := strings.ToLower(line)
		if !started && claimStartRe.MatchString(lower) {
			started = true
		}
		if started {
			if strings.HasPrefix(lower, "description") ||
				strings.HasPrefix(lower, "background") ||
				strings.HasPrefix(lower, "abstract") {
				break
			}
			claimLines = append(claimLines, line)
		}
	}

	// Group continuation lines under their numbered claim.
	var claims []string
	var current string

	for _, line := range claimLines {
		if claimNumberRe.MatchString(line) {
			if current != "" {
				claims = append(claims, strings.TrimSpace(current))
			}
			current = line
		} else {
			current += " " + line
		}
	}
	if current != "" {
		claims = append(claims, strings.TrimSpace(current))
	}

	return claims
}
