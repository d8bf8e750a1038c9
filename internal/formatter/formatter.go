// package formatter provides functions to render clip results in various formats (table, CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/shared"
)

// ToTable renders clips as an aligned text table with columns: ID, Title, Status, Model, Duration, Audio.
func ToTable(clips []models.Clip) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tMODEL\tDURATION\tAUDIO")
	for _, clip := range clips {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			clip.ID,
			clip.Title,
			clip.Status,
			clip.ModelName,
			clipDuration(clip),
			clip.AudioURL,
		)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}
	return buf.Bytes(), nil
}

// ToCSV converts clips to CSV format with columns: ID, Title, Status, Model, Tags, Duration, Audio URL, Video URL, Created At
func ToCSV(clips []models.Clip) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Status", "Model", "Tags", "Duration", "Audio URL", "Video URL", "Created At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, clip := range clips {
		record := []string{
			clip.ID,
			clip.Title,
			clip.Status,
			clip.ModelName,
			clip.Tags,
			clip.Duration,
			clip.AudioURL,
			clip.VideoURL,
			clip.CreatedAt,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts clips to a Markdown listing with audio links and per-clip metadata.
func ToMarkdown(title string, clips []models.Clip) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Generated tracks"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(clips)))

	for i, clip := range clips {
		name := clip.Title
		if name == "" {
			name = clip.ID
		}
		if clip.AudioURL != "" {
			buf.WriteString(fmt.Sprintf("%d. [%s](%s) [%s]\n", i+1, name, clip.AudioURL, clipDuration(clip)))
		} else {
			buf.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, name, clip.Status))
		}
		if clip.Tags != "" {
			buf.WriteString(fmt.Sprintf("   - Tags: %s\n", clip.Tags))
		}
		if clip.ErrorMessage != "" {
			buf.WriteString(fmt.Sprintf("   - Error: %s\n", clip.ErrorMessage))
		}
	}

	return buf.Bytes(), nil
}

// ToJSON renders clips as indented JSON.
func ToJSON(clips []models.Clip) ([]byte, error) {
	return shared.MarshalJSON(clips, true)
}

// WriteCSVExport writes clips to {base}_tracks.csv.
//
// Defaults to "generations" as the base filename.
func WriteCSVExport(clips []models.Clip, baseFilepath string) (string, error) {
	if baseFilepath == "" {
		baseFilepath = "generations"
	}

	csvData, err := ToCSV(clips)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return tracksFile, nil
}

// WriteMarkdownExport writes clips to {base}.md.
func WriteMarkdownExport(title string, clips []models.Clip, baseFilepath string) (string, error) {
	if baseFilepath == "" {
		baseFilepath = "generations"
	}

	mdData, err := ToMarkdown(title, clips)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := baseFilepath + ".md"
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// clipDuration renders the feed's duration string (fractional seconds) as
// m:ss, falling back to the raw value when it does not parse.
func clipDuration(clip models.Clip) string {
	if clip.Duration == "" {
		return ""
	}
	seconds, err := strconv.ParseFloat(clip.Duration, 64)
	if err != nil {
		return clip.Duration
	}
	return shared.FormatDuration(seconds)
}
