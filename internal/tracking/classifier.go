// Package tracking turns window titles into reading sessions.
//
// The Detector polls the window list, the Classifier decides whether a
// window shows a document and extracts a clean title, and the Lifecycle
// opens and closes the matching session rows.
package tracking

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Atharva-Kanherkar/attentive/internal/capture"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// Signal is the classifier's guess at the document currently being read.
type Signal struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	SessionType string `json:"session_type"`
	FileName    string `json:"file_name,omitempty"`
	WindowTitle string `json:"window_title"`
}

// SourceGeneric marks a match on the .pdf pattern alone.
const SourceGeneric = "pdf"

type readerRule struct {
	id        string
	names     []string // as shown in title suffixes, e.g. " - Zotero"
	classes   []string // lowercase window classes
	classOnly bool     // names never appear as a title suffix
	ignore    []string // lowercase titles that are not documents
}

var defaultReaders = []readerRule{
	{id: "zotero", names: []string{"Zotero"}, classes: []string{"zotero"}, ignore: []string{"my library", "group libraries"}},
	{id: "acrobat", names: []string{"Adobe Acrobat"}, classes: []string{"acrord32", "acrobat", "adobe acrobat"}},
	{id: "foxit", names: []string{"Foxit"}, classes: []string{"foxit reader", "foxitreader", "foxit pdf reader"}},
	{id: "sumatrapdf", names: []string{"SumatraPDF"}, classes: []string{"sumatrapdf"}},
	{id: "okular", names: []string{"Okular"}, classes: []string{"okular", "org.kde.okular"}},
	{id: "evince", names: []string{"Document Viewer", "Evince"}, classes: []string{"evince", "org.gnome.evince", "org.gnome.papers", "papers"}},
	{id: "preview", names: []string{"Preview"}, classes: []string{"preview"}, classOnly: true},
	{id: "skim", names: []string{"Skim"}, classes: []string{"skim"}, classOnly: true},
	{id: "zathura", names: []string{"zathura"}, classes: []string{"zathura", "org.pwmt.zathura"}, classOnly: true},
	{id: "pdf-xchange", names: []string{"PDF-XChange"}, classes: []string{"pdfxedit", "pdf-xchange editor"}},
}

var titleSeparators = []string{" - ", " — ", " – "}

var (
	pdfNamePattern = regexp.MustCompile(`(?i)([^/\\]*?\.pdf)\b`)
	pageIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:page\s*)?\d+\s*(?:/|of)\s*\d+\s*[\)\]]\s*$`),
		regexp.MustCompile(`(?i)\s*[-–—,:]?\s*page\s*\d+(?:\s*(?:/|of)\s*\d+)?\s*$`),
	}
	barePageCounter = regexp.MustCompile(`\s*(\d+)\s*/\s*(\d+)\s*$`)
)

// Classifier recognises document-reading windows.
type Classifier struct {
	readers []readerRule
}

// NewClassifier builds a classifier over the built-in readers plus extra
// reader names matched as title suffixes.
func NewClassifier(extraReaders []string) *Classifier {
	readers := append([]readerRule(nil), defaultReaders...)
	for _, name := range extraReaders {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		readers = append(readers, readerRule{
			id:      strings.ToLower(name),
			names:   []string{name},
			classes: []string{strings.ToLower(name)},
		})
	}
	return &Classifier{readers: readers}
}

// Detect returns the signal of the first matching window. Windows are
// expected focused first.
func (c *Classifier) Detect(windows []capture.Window) (Signal, bool) {
	for _, w := range windows {
		if sig, ok := c.Classify(w); ok {
			return sig, true
		}
	}
	return Signal{}, false
}

// Classify inspects one window.
func (c *Classifier) Classify(w capture.Window) (Signal, bool) {
	raw := strings.TrimSpace(w.Title)
	if raw == "" {
		return Signal{}, false
	}
	class := strings.ToLower(w.Class)

	for _, r := range c.readers {
		body, matched := r.strip(raw)
		if !matched && !r.hasClass(class) {
			continue
		}
		title, fileName := cleanTitle(body)
		if title == "" || r.ignores(title) {
			return Signal{}, false
		}
		return Signal{
			Title:       title,
			Source:      r.id,
			SessionType: model.SessionTypePDFReading,
			FileName:    fileName,
			WindowTitle: raw,
		}, true
	}

	// any other window whose title carries a .pdf file name
	if !pdfNamePattern.MatchString(raw) {
		return Signal{}, false
	}
	title, fileName := cleanTitle(documentSegment(raw))
	if title == "" {
		return Signal{}, false
	}
	source := SourceGeneric
	if class != "" {
		source = class
	}
	return Signal{
		Title:       title,
		Source:      source,
		SessionType: model.SessionTypePDFReading,
		FileName:    fileName,
		WindowTitle: raw,
	}, true
}

// strip removes the reader suffix (" - Zotero") from title.
func (r readerRule) strip(title string) (string, bool) {
	if r.classOnly {
		return title, false
	}
	lower := strings.ToLower(title)
	for _, name := range r.names {
		for _, sep := range titleSeparators {
			marker := strings.ToLower(sep + name)
			if i := strings.LastIndex(lower, marker); i >= 0 {
				return title[:i], true
			}
		}
	}
	return title, false
}

func (r readerRule) hasClass(class string) bool {
	if class == "" {
		return false
	}
	for _, c := range r.classes {
		if c == class {
			return true
		}
	}
	return false
}

func (r readerRule) ignores(title string) bool {
	lower := strings.ToLower(title)
	for _, name := range r.names {
		if lower == strings.ToLower(name) {
			return true
		}
	}
	for _, ig := range r.ignore {
		if lower == ig {
			return true
		}
	}
	return false
}

// documentSegment picks the part of a separated title that names the PDF,
// e.g. "paper.pdf" out of "paper.pdf - Mozilla Firefox".
func documentSegment(title string) string {
	parts := []string{title}
	for _, sep := range titleSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	for _, p := range parts {
		if strings.Contains(strings.ToLower(p), ".pdf") {
			return p
		}
	}
	return title
}

// cleanTitle strips page indicators, directories and the .pdf extension.
// It returns the display title and the file name, if one was present.
func cleanTitle(s string) (string, string) {
	s = stripPageIndicators(strings.TrimSpace(s))

	fileName := ""
	if m := pdfNamePattern.FindStringSubmatch(s); m != nil {
		// the pattern never crosses a path separator, so this is a base name
		fileName = strings.TrimSpace(m[1])
		s = fileName
	}
	if strings.EqualFold(filepath.Ext(s), ".pdf") {
		s = s[:len(s)-len(".pdf")]
	}
	return strings.Trim(s, " -–—:|"), fileName
}

func stripPageIndicators(s string) string {
	for changed := true; changed; {
		changed = false
		for _, re := range pageIndicators {
			if loc := re.FindStringIndex(s); loc != nil && loc[0] > 0 {
				s = strings.TrimSpace(s[:loc[0]])
				changed = true
			}
		}
		if m := barePageCounter.FindStringSubmatchIndex(s); m != nil && m[0] > 0 &&
			isPageCounter(s[m[2]:m[3]], s[m[4]:m[5]]) {
			s = strings.TrimSpace(s[:m[0]])
			changed = true
		}
	}
	return s
}

// isPageCounter reports whether a bare "n/m" suffix reads as a page
// position. Ranges like "2023/2024" are part of the title.
func isPageCounter(page, total string) bool {
	n, err1 := strconv.Atoi(page)
	m, err2 := strconv.Atoi(total)
	if err1 != nil || err2 != nil || n < 1 || n > m {
		return false
	}
	return !looksLikeYear(page) && !looksLikeYear(total)
}

func looksLikeYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	y, _ := strconv.Atoi(s)
	return y >= 1000 && y <= 2999
}
