package export

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/identigraph/pkg/clock"
	"github.com/vanderheijden86/identigraph/pkg/model"
	"github.com/vanderheijden86/identigraph/pkg/session"
)

type firstPicker struct{}

func (firstPicker) IntN(int) int { return 0 }

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	opts := session.DefaultOptions()
	opts.Nodes = []model.NodeSpec{
		{ID: "core", Category: "shield", Label: "Identity Core", Fixed: true},
		{ID: "users", Category: "user", Label: "Users", Offset: model.Point{X: -120, Y: -40}},
		{ID: "db", Category: "database", Label: "Directory", Offset: model.Point{X: 130, Y: 60}},
	}
	opts.Edges = []model.EdgeSpec{
		{ID: "c1", Source: "users", Target: "core", Strength: 0.8, Label: "authenticates"},
		{ID: "c2", Source: "core", Target: "db", Strength: 0.6, Label: "queries"},
	}
	opts.Paths = []model.PathSpec{{ID: "lookup", Edges: []string{"c1", "c2"}, Description: "User lookup"}}
	opts.Bounds = model.Bounds{Width: 400, Height: 300}
	opts.Interaction.Clock = clock.NewManual(time.Unix(100, 0))
	opts.Interaction.Rand = firstPicker{}
	opts.EaseScale = false
	s, err := session.New(opts)
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	t.Cleanup(s.Teardown)
	return s
}

func snapshotOf(t *testing.T, s *session.Session) Snapshot {
	t.Helper()
	f, err := s.Step(1)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	return Snapshot{Frame: f, State: s.Snapshot(), Title: "Test Graph"}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"out.png", PNG, false},
		{"OUT.SVG", SVG, false},
		{"dir/state.json", JSON, false},
		{"report.md", Markdown, false},
		{"report.markdown", Markdown, false},
		{"image.gif", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFor(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatFor(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FormatFor(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestSaveAll_WritesEveryFormat(t *testing.T) {
	s := newTestSession(t)
	snap := snapshotOf(t, s)
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "graph.png"),
		filepath.Join(dir, "graph.svg"),
		filepath.Join(dir, "nested", "state.json"),
		filepath.Join(dir, "report.md"),
	}
	if err := SaveAll(context.Background(), snap, paths...); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	pngFile, err := os.Open(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer pngFile.Close()
	img, err := png.Decode(pngFile)
	if err != nil {
		t.Fatalf("PNG does not decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("PNG size = %dx%d, want 400x300", b.Dx(), b.Dy())
	}

	svgData, _ := os.ReadFile(paths[1])
	if !bytes.Contains(svgData, []byte("<svg")) || !bytes.Contains(svgData, []byte("node-core")) {
		t.Errorf("SVG missing expected content")
	}

	var state struct {
		Width float64                `json:"width"`
		Nodes []session.NodeSnapshot `json:"nodes"`
		Edges []session.EdgeSnapshot `json:"edges"`
		State struct {
			Phase string `json:"phase"`
		} `json:"state"`
	}
	data, _ := os.ReadFile(paths[2])
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("state.json does not decode: %v", err)
	}
	if len(state.Nodes) != 3 || len(state.Edges) != 2 || state.Width != 400 {
		t.Errorf("Unexpected state: %+v", state)
	}
	if state.State.Phase != "idle" {
		t.Errorf("phase = %q, want idle", state.State.Phase)
	}

	md, _ := os.ReadFile(paths[3])
	if !strings.HasPrefix(string(md), "# Test Graph\n") {
		t.Errorf("Report heading missing: %q", md[:min(len(md), 40)])
	}
}

func TestSaveAll_RejectsUnknownFormatBeforeWriting(t *testing.T) {
	s := newTestSession(t)
	snap := snapshotOf(t, s)
	dir := t.TempDir()
	good := filepath.Join(dir, "ok.svg")
	err := SaveAll(context.Background(), snap, good, filepath.Join(dir, "bad.gif"))
	if err == nil {
		t.Fatal("Expected an error for .gif")
	}
	if _, statErr := os.Stat(good); !os.IsNotExist(statErr) {
		t.Error("No file should be written when any format is invalid")
	}
}

func TestWriteFrame_RejectsNonImageFormat(t *testing.T) {
	s := newTestSession(t)
	snap := snapshotOf(t, s)
	if err := WriteFrame(&bytes.Buffer{}, snap.Frame, JSON); err == nil {
		t.Error("JSON is not an image format")
	}
}

func TestGenerateMarkdown(t *testing.T) {
	now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { now = time.Now }()

	s := newTestSession(t)
	s.Activate("core")
	snap := snapshotOf(t, s)
	md := GenerateMarkdown(snap.State, "Identity")

	for _, want := range []string{
		"# Identity\n",
		"- **Nodes**: 3",
		"- **Relationships**: 2",
		"- **Highlight**: activated",
		"```mermaid\ngraph LR\n",
		`users ==>|authenticates| core`,
		"| **Identity Core** | shield | 2 |",
		"### lookup",
		"User lookup",
		"Edges: c1 → c2",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Report missing %q\n%s", want, md)
		}
	}

	// The hub ranks first by centrality
	table := md[strings.Index(md, "## Nodes"):]
	coreRow := strings.Index(table, "Identity Core")
	usersRow := strings.Index(table, "Users")
	if coreRow < 0 || usersRow < 0 || coreRow > usersRow {
		t.Errorf("Nodes should be ordered by centrality")
	}
}

func TestGenerateMarkdown_NoEdges(t *testing.T) {
	md := GenerateMarkdown(session.Snapshot{}, "Empty")
	if !strings.Contains(md, "NoRelationships") {
		t.Error("Empty graph should render a placeholder node")
	}
	if strings.Contains(md, "## Paths") {
		t.Error("Paths section should be omitted when there are none")
	}
}

func TestMermaidSanitizing(t *testing.T) {
	if got := mermaidID("user-access.v2"); got != "user_access_v2" {
		t.Errorf("mermaidID = %q", got)
	}
	if got := mermaidText(`say "hi" [now] (ok) |x|`); strings.ContainsAny(got, `"[]()|`) {
		t.Errorf("mermaidText left special characters: %q", got)
	}
	if got := mermaidText(strings.Repeat("a", 40)); len(got) != 30 {
		t.Errorf("mermaidText length = %d, want 30", len(got))
	}
}

func TestRenderSequence(t *testing.T) {
	s := newTestSession(t)
	dir := t.TempDir()
	paths, err := RenderSequence(context.Background(), s, dir, SequenceOptions{
		Frames:  6,
		Format:  PNG,
		Workers: 2,
	})
	if err != nil {
		t.Fatalf("RenderSequence failed: %v", err)
	}
	if len(paths) != 6 {
		t.Fatalf("Got %d paths, want 6", len(paths))
	}
	for i, p := range paths {
		if filepath.Base(p) != "frame-0000"+string(rune('0'+i))+".png" {
			t.Errorf("paths[%d] = %s", i, p)
		}
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("Frame %d not written: %v", i, err)
		}
	}
	if snap := s.Snapshot(); snap.Frames != 6 {
		t.Errorf("Session stepped %d frames, want 6", snap.Frames)
	}
}

func TestRenderSequence_Validation(t *testing.T) {
	s := newTestSession(t)
	if _, err := RenderSequence(context.Background(), s, t.TempDir(), SequenceOptions{Frames: 0, Format: PNG}); err == nil {
		t.Error("Zero frames should be rejected")
	}
	if _, err := RenderSequence(context.Background(), s, t.TempDir(), SequenceOptions{Frames: 2, Format: JSON}); err == nil {
		t.Error("JSON sequences should be rejected")
	}
}

func TestRenderSequence_StopsOnClosedSession(t *testing.T) {
	s := newTestSession(t)
	s.Teardown()
	_, err := RenderSequence(context.Background(), s, t.TempDir(), SequenceOptions{Frames: 3, Format: SVG})
	if err == nil {
		t.Fatal("Expected an error from a torn-down session")
	}
}
