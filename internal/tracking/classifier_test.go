package tracking

import (
	"testing"

	"github.com/Atharva-Kanherkar/attentive/internal/capture"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name     string
		window   capture.Window
		ok       bool
		title    string
		source   string
		fileName string
	}{
		{
			name:   "zotero reader tab",
			window: capture.Window{Title: "Smith - Attention Is All You Need - Zotero", Class: "Zotero"},
			ok:     true, title: "Smith - Attention Is All You Need", source: "zotero",
		},
		{
			name:   "zotero library view",
			window: capture.Window{Title: "My Library - Zotero", Class: "Zotero"},
		},
		{
			name:   "acrobat",
			window: capture.Window{Title: "paper.pdf - Adobe Acrobat Reader (64-bit)"},
			ok:     true, title: "paper", source: "acrobat", fileName: "paper.pdf",
		},
		{
			name:   "okular em dash",
			window: capture.Window{Title: "thesis.pdf — Okular", Class: "okular"},
			ok:     true, title: "thesis", source: "okular", fileName: "thesis.pdf",
		},
		{
			name:   "document viewer with page",
			window: capture.Window{Title: "notes.pdf (page 3 of 10) — Document Viewer"},
			ok:     true, title: "notes", source: "evince", fileName: "notes.pdf",
		},
		{
			name:   "zathura path with page counter",
			window: capture.Window{Title: "/home/me/papers/Deep Learning.pdf [12/300]", Class: "org.pwmt.zathura"},
			ok:     true, title: "Deep Learning", source: "zathura", fileName: "Deep Learning.pdf",
		},
		{
			name:   "zotero title ending in a year range",
			window: capture.Window{Title: "Economic Outlook 2023/2024 - Zotero", Class: "Zotero"},
			ok:     true, title: "Economic Outlook 2023/2024", source: "zotero",
		},
		{
			name:   "zotero title ending in a fraction",
			window: capture.Window{Title: "Ratios 7/3 - Zotero", Class: "Zotero"},
			ok:     true, title: "Ratios 7/3", source: "zotero",
		},
		{
			name:   "bare page counter",
			window: capture.Window{Title: "Lecture Notes 3/12 - Zotero", Class: "Zotero"},
			ok:     true, title: "Lecture Notes", source: "zotero",
		},
		{
			name:   "preview by class",
			window: capture.Window{Title: "book.pdf – Page 4 of 20", Class: "Preview"},
			ok:     true, title: "book", source: "preview", fileName: "book.pdf",
		},
		{
			name:   "preview suffix in another app is ignored",
			window: capture.Window{Title: "README.md - Preview", Class: "code"},
		},
		{
			name:   "browser pdf",
			window: capture.Window{Title: "Attention Is All You Need.pdf - Mozilla Firefox", Class: "firefox"},
			ok:     true, title: "Attention Is All You Need", source: "firefox", fileName: "Attention Is All You Need.pdf",
		},
		{
			name:   "unknown viewer without class",
			window: capture.Window{Title: "report.PDF"},
			ok:     true, title: "report", source: SourceGeneric, fileName: "report.PDF",
		},
		{
			name:   "terminal",
			window: capture.Window{Title: "~/src/attentive", Class: "kitty"},
		},
		{
			name:   "bare reader window",
			window: capture.Window{Title: "Okular", Class: "okular"},
		},
		{
			name:   "empty title",
			window: capture.Window{Title: "   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := c.Classify(tt.window)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (signal %+v)", ok, tt.ok, sig)
			}
			if !ok {
				return
			}
			if sig.Title != tt.title {
				t.Errorf("title = %q, want %q", sig.Title, tt.title)
			}
			if sig.Source != tt.source {
				t.Errorf("source = %q, want %q", sig.Source, tt.source)
			}
			if sig.FileName != tt.fileName {
				t.Errorf("file name = %q, want %q", sig.FileName, tt.fileName)
			}
			if sig.SessionType != model.SessionTypePDFReading {
				t.Errorf("session type = %q", sig.SessionType)
			}
			if sig.WindowTitle != tt.window.Title {
				t.Errorf("window title not preserved: %q", sig.WindowTitle)
			}
		})
	}
}

func TestYearRangesStayDistinct(t *testing.T) {
	c := NewClassifier(nil)
	a, _ := c.Classify(capture.Window{Title: "Economic Outlook 2023/2024 - Zotero", Class: "Zotero"})
	b, _ := c.Classify(capture.Window{Title: "Economic Outlook 2024/2025 - Zotero", Class: "Zotero"})
	if a.Title == b.Title {
		t.Errorf("different documents share the title %q", a.Title)
	}
}

func TestDetectPrefersFirstMatch(t *testing.T) {
	c := NewClassifier(nil)
	windows := []capture.Window{
		{Title: "kitty", Class: "kitty"},
		{Title: "first.pdf - SumatraPDF"},
		{Title: "second.pdf — Okular"},
	}
	sig, ok := c.Detect(windows)
	if !ok || sig.Title != "first" || sig.Source != "sumatrapdf" {
		t.Errorf("unexpected signal %+v", sig)
	}

	if _, ok := c.Detect(nil); ok {
		t.Error("no windows should give no signal")
	}
}

func TestExtraReaders(t *testing.T) {
	c := NewClassifier([]string{"Calibre", " "})
	sig, ok := c.Classify(capture.Window{Title: "Dune - Calibre"})
	if !ok || sig.Title != "Dune" || sig.Source != "calibre" {
		t.Errorf("unexpected signal %+v", sig)
	}
}
