package record

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports text that carries no recognizable record structure.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record: parse: %s", e.Reason)
}

type lineKind int

const (
	kindText lineKind = iota
	kindTag
	kindTitle
	kindInfo
	kindName
	kindIntro
	kindDivider
	kindEntry
	kindSummary
	kindNotes
)

// classify reports the structural role of a line, if any.
func classify(line string) (lineKind, bool) {
	t := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(t, tagPrefix):
		return kindTag, true
	case t == headerTitle:
		return kindTitle, true
	case t == headerInfo:
		return kindInfo, true
	case strings.HasPrefix(t, nameField):
		return kindName, true
	case strings.HasPrefix(t, introField):
		return kindIntro, true
	case t == divider:
		return kindDivider, true
	case strings.HasPrefix(t, entryPrefix):
		return kindEntry, true
	case t == summaryHeading:
		return kindSummary, true
	case t == notesHeading:
		return kindNotes, true
	}
	return kindText, false
}

type mode int

const (
	modeNone mode = iota
	modeHeader
	modeDuplicateHeader
	modeEntry
)

type section int

const (
	sectionLead section = iota
	sectionSummary
	sectionNotes
)

type parser struct {
	rec        Record
	mode       mode
	headerSeen bool
	structured bool
	lastField  lineKind

	// current entry
	date    string
	section section
	summary []string
	notes   []string

	orphan []string
}

// Parse extracts a Record from text. The first patient header wins; any later
// header blocks (left behind by naive concatenation) are discarded. Entries are
// returned in document order, which is newest first. Text without any record
// markers yields a *ParseError; use Recover for the permissive path.
func Parse(text string) (*Record, error) {
	text = normalizeNewlines(text)
	if strings.TrimSpace(text) == "" {
		return &Record{}, nil
	}

	p := &parser{}
	tagged := false
	for _, line := range strings.Split(text, "\n") {
		kind, _ := classify(line)
		switch kind {
		case kindTag:
			if tagged {
				continue
			}
			v, err := parseTag(line)
			if err != nil {
				return nil, err
			}
			if v > FormatVersion {
				return nil, &ParseError{Reason: fmt.Sprintf("unsupported record version %d", v)}
			}
			tagged = true
			p.structured = true
		case kindTitle:
			p.beginHeader()
		case kindInfo:
			if p.mode != modeHeader && p.mode != modeDuplicateHeader {
				p.beginHeader()
			}
		case kindName, kindIntro:
			p.field(kind, line)
		case kindDivider:
			p.divider(line)
		case kindEntry:
			p.beginEntry(line)
		case kindSummary, kindNotes:
			p.heading(kind, line)
		default:
			p.text(line)
		}
	}
	p.closeBlock()
	p.flushOrphan()

	if !p.structured {
		return nil, &ParseError{Reason: "no record markers found"}
	}
	return &p.rec, nil
}

// Recover parses text and, when it carries no structure at all, keeps the whole
// text as a single legacy entry with an unknown date.
func Recover(text string) *Record {
	r, err := Parse(text)
	if err == nil {
		return r
	}
	body := strings.TrimSpace(normalizeNewlines(text))
	return &Record{Entries: []Entry{{Summary: body}}}
}

func parseTag(line string) (int, error) {
	t := strings.TrimSpace(line)
	if !strings.HasSuffix(t, tagSuffix) {
		return 0, &ParseError{Reason: "malformed version tag"}
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(t, tagPrefix), tagSuffix)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, &ParseError{Reason: fmt.Sprintf("malformed version tag %q", raw)}
	}
	return v, nil
}

func (p *parser) beginHeader() {
	p.closeBlock()
	p.flushOrphan()
	p.structured = true
	if p.headerSeen {
		p.mode = modeDuplicateHeader
		return
	}
	p.headerSeen = true
	p.rec.Patient = &PatientInfo{}
	p.mode = modeHeader
	p.lastField = kindText
}

func (p *parser) field(kind lineKind, line string) {
	switch p.mode {
	case modeDuplicateHeader:
		return
	case modeHeader:
		t := strings.TrimSpace(line)
		if kind == kindName {
			p.rec.Patient.Name = fieldValue(strings.TrimPrefix(t, nameField))
		} else {
			p.rec.Patient.InitialIntroduction = fieldValue(strings.TrimPrefix(t, introField))
		}
		p.lastField = kind
	default:
		p.text(line)
	}
}

func fieldValue(s string) string {
	s = strings.TrimSpace(s)
	if s == Placeholder {
		return ""
	}
	return s
}

func (p *parser) divider(line string) {
	switch p.mode {
	case modeHeader, modeDuplicateHeader:
		p.mode = modeNone
	case modeEntry:
		// Kept until the entry closes; trailing dividers are trimmed there.
		p.appendSection(line)
	default:
		p.flushOrphan()
	}
}

func (p *parser) beginEntry(line string) {
	p.closeBlock()
	p.flushOrphan()
	p.structured = true
	date := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), entryPrefix))
	if date == UnknownDate {
		date = ""
	}
	p.mode = modeEntry
	p.date = date
	p.section = sectionLead
	p.summary = nil
	p.notes = nil
}

func (p *parser) heading(kind lineKind, line string) {
	if p.mode != modeEntry {
		p.text(line)
		return
	}
	if kind == kindSummary {
		p.section = sectionSummary
	} else {
		p.section = sectionNotes
	}
}

func (p *parser) text(line string) {
	switch p.mode {
	case modeEntry:
		p.appendSection(line)
	case modeHeader:
		if strings.TrimSpace(line) == "" {
			return
		}
		// Continuation of a wrapped introduction line.
		if p.lastField == kindIntro {
			intro := p.rec.Patient.InitialIntroduction
			p.rec.Patient.InitialIntroduction = strings.TrimSpace(intro + " " + strings.TrimSpace(unescapeLine(line)))
		}
	case modeDuplicateHeader:
	default:
		p.orphan = append(p.orphan, line)
	}
}

func (p *parser) appendSection(line string) {
	if p.section == sectionNotes {
		p.notes = append(p.notes, line)
		return
	}
	p.summary = append(p.summary, line)
}

func (p *parser) closeBlock() {
	if p.mode == modeEntry {
		p.rec.Entries = append(p.rec.Entries, Entry{
			Date:             p.date,
			Summary:          sectionText(p.summary),
			TherapeuticNotes: sectionText(p.notes),
		})
		p.summary, p.notes = nil, nil
	}
	p.mode = modeNone
}

// flushOrphan keeps unstructured text found between blocks as a legacy entry.
func (p *parser) flushOrphan() {
	body := sectionText(p.orphan)
	p.orphan = nil
	if body == "" {
		return
	}
	p.rec.Entries = append(p.rec.Entries, Entry{Summary: body})
}

// sectionText drops surrounding blank lines and raw dividers, then unescapes.
func sectionText(lines []string) string {
	start, end := 0, len(lines)
	for start < end && isPadding(lines[start]) {
		start++
	}
	for end > start && isPadding(lines[end-1]) {
		end--
	}
	out := make([]string, 0, end-start)
	for _, l := range lines[start:end] {
		out = append(out, unescapeLine(l))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func isPadding(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || t == divider
}
