// Package record serializes and parses portable session records.
//
// Layout (newest entry first):
//
//	<!-- theraia-record v1 -->
//	# Theraia Patient Record
//
//	## Patient Information
//	**Name:** ...
//	**Initial Introduction:** ...
//
//	---
//
//	## Session Date: YYYY-MM-DD
//
//	### Summary
//	...
//
//	### Therapeutic Notes
//	...
//
// The version tag is optional on input so records issued before it existed still parse.
package record

import (
	"strconv"
	"strings"
)

// FormatVersion is written into the tag line of every serialized record.
const FormatVersion = 1

const (
	tagPrefix      = "<!-- theraia-record v"
	tagSuffix      = " -->"
	headerTitle    = "# Theraia Patient Record"
	headerInfo     = "## Patient Information"
	nameField      = "**Name:**"
	introField     = "**Initial Introduction:**"
	divider        = "---"
	entryPrefix    = "## Session Date:"
	summaryHeading = "### Summary"
	notesHeading   = "### Therapeutic Notes"

	// Placeholder is written for absent patient fields.
	Placeholder = "Not provided."
	// UnknownDate is written for entries whose date was never known (legacy text).
	UnknownDate = "Unknown"
)

// PatientInfo identifies the record holder. Written once, at first-session conclusion.
type PatientInfo struct {
	Name                string `json:"name"`
	InitialIntroduction string `json:"initialIntroduction"`
}

// IsZero reports whether neither field carries a value.
func (p *PatientInfo) IsZero() bool {
	return p == nil || (strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.InitialIntroduction) == "")
}

// Entry is one dated summary block. Date is ISO YYYY-MM-DD, or empty when unknown.
type Entry struct {
	Date             string `json:"date"`
	Summary          string `json:"summary"`
	TherapeuticNotes string `json:"therapeuticNotes"`
}

// Record is the structured form of a session record.
type Record struct {
	Patient *PatientInfo `json:"patient,omitempty"`
	Entries []Entry      `json:"entries"`
}

// Latest returns the newest entry, if any.
func (r *Record) Latest() (Entry, bool) {
	if r == nil || len(r.Entries) == 0 {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// Serialize renders r in the plain-text layout. Patient fields are single-line;
// embedded newlines are folded into spaces.
func Serialize(r *Record) string {
	var blocks []string
	if r != nil && r.Patient != nil {
		blocks = append(blocks, renderHeader(r.Patient))
	}
	if r != nil {
		for _, e := range r.Entries {
			blocks = append(blocks, renderEntry(e))
		}
	}

	var b strings.Builder
	b.WriteString(versionTag(FormatVersion))
	b.WriteString("\n")
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString("\n\n" + divider + "\n\n")
		}
		b.WriteString(blk)
	}
	b.WriteString("\n")
	return b.String()
}

func versionTag(v int) string {
	return tagPrefix + strconv.Itoa(v) + tagSuffix
}

func renderHeader(p *PatientInfo) string {
	lines := []string{
		headerTitle,
		"",
		headerInfo,
		nameField + " " + orPlaceholder(singleLine(p.Name)),
		introField + " " + orPlaceholder(singleLine(p.InitialIntroduction)),
	}
	return strings.Join(lines, "\n")
}

func renderEntry(e Entry) string {
	date := strings.TrimSpace(e.Date)
	if date == "" {
		date = UnknownDate
	}
	var b strings.Builder
	b.WriteString(entryPrefix + " " + singleLine(date) + "\n\n")
	b.WriteString(summaryHeading + "\n")
	b.WriteString(escapeBody(e.Summary))
	b.WriteString("\n\n" + notesHeading + "\n")
	b.WriteString(escapeBody(e.TherapeuticNotes))
	return strings.TrimRight(b.String(), "\n")
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// escapeBody prefixes a backslash to every line that would otherwise read as structure.
func escapeBody(s string) string {
	s = strings.TrimSpace(normalizeNewlines(s))
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if needsEscape(l) {
			lines[i] = `\` + l
		}
	}
	return strings.Join(lines, "\n")
}

func needsEscape(line string) bool {
	if strings.HasPrefix(line, `\`) {
		return true
	}
	_, structural := classify(line)
	return structural
}

func unescapeLine(line string) string {
	return strings.TrimPrefix(line, `\`)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
