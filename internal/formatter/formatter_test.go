package formatter

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yanani99/reso/internal/models"
	tt "github.com/yanani99/reso/internal/testing"
)

func sampleClips() []models.Clip {
	return []models.Clip{
		{
			ID:        "clip-1",
			Title:     "Night Drive",
			Status:    models.StatusComplete,
			ModelName: "chirp-v3-5",
			Tags:      "synthwave",
			Duration:  "187.2",
			AudioURL:  "https://cdn.example.com/clip-1.mp3",
			CreatedAt: "2025-01-02T03:04:05.000Z",
		},
		{
			ID:           "clip-2",
			Status:       models.StatusError,
			ErrorMessage: "moderation",
		},
	}
}

func TestToTable(t *testing.T) {
	out, err := ToTable(sampleClips())
	if err != nil {
		t.Fatalf("ToTable failed: %v", err)
	}
	text := string(out)

	t.Run("has a header row", func(t *testing.T) {
		if !strings.HasPrefix(text, "ID") || !strings.Contains(text, "STATUS") {
			t.Errorf("missing header: %q", text)
		}
	})

	t.Run("formats the duration", func(t *testing.T) {
		if !strings.Contains(text, "3:07") {
			t.Errorf("duration not rendered as m:ss: %q", text)
		}
	})

	t.Run("one line per clip plus header", func(t *testing.T) {
		lines := strings.Count(strings.TrimRight(text, "\n"), "\n") + 1
		if lines != 3 {
			t.Errorf("got %d lines, want 3", lines)
		}
	})
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV(sampleClips())
	if err != nil {
		t.Fatalf("ToCSV failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[1][0] != "clip-1" || records[1][5] != "187.2" {
		t.Errorf("unexpected first record: %v", records[1])
	}
	if records[2][2] != models.StatusError {
		t.Errorf("unexpected second record: %v", records[2])
	}
}

func TestToMarkdown(t *testing.T) {
	out, err := ToMarkdown("My Session", sampleClips())
	if err != nil {
		t.Fatalf("ToMarkdown failed: %v", err)
	}
	text := string(out)

	t.Run("links finished clips", func(t *testing.T) {
		if !strings.Contains(text, "[Night Drive](https://cdn.example.com/clip-1.mp3)") {
			t.Errorf("missing audio link: %q", text)
		}
	})

	t.Run("reports failures", func(t *testing.T) {
		if !strings.Contains(text, "Error: moderation") {
			t.Errorf("missing error note: %q", text)
		}
	})

	t.Run("falls back to a default title", func(t *testing.T) {
		out, err := ToMarkdown("", nil)
		if err != nil {
			t.Fatalf("ToMarkdown failed: %v", err)
		}
		if !strings.HasPrefix(string(out), "# Generated tracks") {
			t.Errorf("missing default title: %q", string(out))
		}
	})
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(sampleClips())
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	var clips []models.Clip
	if err := json.Unmarshal(out, &clips); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(clips) != 2 || clips[0].ID != "clip-1" {
		t.Errorf("round trip lost data: %+v", clips)
	}
}

func TestFileExports(t *testing.T) {
	t.Run("CSV export writes the tracks file", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "out")
		path, err := WriteCSVExport(sampleClips(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		tt.AssertFileExists(t, path)
		if !strings.HasSuffix(path, "_tracks.csv") {
			t.Errorf("unexpected filename: %s", path)
		}
	})

	t.Run("Markdown export writes the listing", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "out")
		path, err := WriteMarkdownExport("Session", sampleClips(), base)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		tt.AssertFileExists(t, path)
		content := tt.MustReadFile(t, path)
		if !strings.Contains(content, "# Session") {
			t.Errorf("markdown content wrong: %q", content)
		}
	})
}
