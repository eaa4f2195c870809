package window

import "testing"

func TestParseHyprlandClients(t *testing.T) {
	data := []byte(`[
		{"class":"kitty","title":"~/src","pid":10,"mapped":true,"focusHistoryID":2},
		{"class":"org.pwmt.zathura","title":"paper.pdf","pid":11,"mapped":true,"focusHistoryID":0},
		{"class":"firefox","title":"News","pid":12,"mapped":true,"focusHistoryID":-1},
		{"class":"Zotero","title":"Smith - Attention Is All You Need - Zotero","pid":13,"mapped":true,"focusHistoryID":1},
		{"class":"ghost","title":"hidden","pid":14,"mapped":false,"focusHistoryID":3}
	]`)

	windows, err := ParseHyprlandClients(data)
	if err != nil {
		t.Fatalf("ParseHyprlandClients: %v", err)
	}
	if len(windows) != 4 {
		t.Fatalf("expected 4 mapped windows, got %d", len(windows))
	}
	want := []string{"paper.pdf", "Smith - Attention Is All You Need - Zotero", "~/src", "News"}
	for i, w := range windows {
		if w.Title != want[i] {
			t.Errorf("window %d: got %q, want %q", i, w.Title, want[i])
		}
	}
	if !windows[0].Focused || windows[1].Focused {
		t.Error("only the first window should be focused")
	}

	if _, err := ParseHyprlandClients([]byte("not json")); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestParseSwayTree(t *testing.T) {
	data := []byte(`{
		"type":"root","nodes":[
			{"type":"output","nodes":[
				{"type":"workspace","nodes":[
					{"type":"con","name":"terminal","pid":20,"app_id":"foot"},
					{"type":"con","name":"thesis.pdf - Okular","pid":21,"focused":true,"window_properties":{"class":"okular"}}
				],"floating_nodes":[
					{"type":"floating_con","name":"calc","pid":22,"app_id":"qalculate"}
				]}
			]}
		]}`)

	windows, err := ParseSwayTree(data)
	if err != nil {
		t.Fatalf("ParseSwayTree: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	if windows[0].Title != "thesis.pdf - Okular" || !windows[0].Focused || windows[0].Class != "okular" {
		t.Errorf("focused window should come first: %+v", windows[0])
	}
}

func TestParseWmctrl(t *testing.T) {
	data := []byte(
		"0x01e00003 -1 900 xfce4-panel.Xfce4-panel host xfce4-panel\n" +
			"0x03a00003  0 1234 Navigator.firefox host Mozilla Firefox\n" +
			"0x04000007  0 5678 evince.Evince host notes.pdf — Document Viewer\n" +
			"garbage\n")

	windows := ParseWmctrl(data, "67108871") // 0x04000007
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].Title != "notes.pdf — Document Viewer" || !windows[0].Focused {
		t.Errorf("expected focused evince first: %+v", windows[0])
	}
	if windows[0].Class != "Evince" || windows[0].PID != 5678 {
		t.Errorf("unexpected class or pid: %+v", windows[0])
	}
	if windows[1].Title != "Mozilla Firefox" || windows[1].Focused {
		t.Errorf("unexpected second window: %+v", windows[1])
	}
}

func TestParseMacOSWindows(t *testing.T) {
	data := []byte("Preview\tpaper.pdf\tfalse\nSkim\tbook.pdf\ttrue\n\n")
	windows := ParseMacOSWindows(data)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].Class != "Skim" || !windows[0].Focused {
		t.Errorf("frontmost window should be first: %+v", windows[0])
	}
}
