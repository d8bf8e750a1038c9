package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/yanani99/reso/internal/formatter"
	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/repositories"
	"github.com/yanani99/reso/internal/shared"
)

// Tracks lists saved generations in the requested format.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	config := r.configFor(cmd)
	limit := cmd.Int("limit")
	format := cmd.String("format")
	outputPath := cmd.String("output")
	status := cmd.String("status")

	db, err := r.database(config)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewJobRepository(db)

	var clips []models.Clip
	if status != "" {
		clips, err = repo.ListByStatus(ctx, status)
	} else {
		clips, err = repo.List(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	if len(clips) == 0 {
		r.writePlain("No saved tracks. Run 'reso generate' first.\n")
		return nil
	}

	if outputPath != "" {
		return r.exportTracks(clips, format, outputPath)
	}

	var rendered []byte
	switch format {
	case "table":
		rendered, err = formatter.ToTable(clips)
	case "csv":
		rendered, err = formatter.ToCSV(clips)
	case "markdown", "md":
		rendered, err = formatter.ToMarkdown("Saved tracks", clips)
	case "json":
		rendered, err = formatter.ToJSON(clips)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return fmt.Errorf("failed to format tracks: %w", err)
	}

	return r.writePlain("%s", rendered)
}

func (r *Runner) exportTracks(clips []models.Clip, format, outputPath string) error {
	var path string
	var err error

	switch format {
	case "csv", "table":
		path, err = formatter.WriteCSVExport(clips, outputPath)
	case "markdown", "md":
		path, err = formatter.WriteMarkdownExport("Saved tracks", clips, outputPath)
	default:
		return fmt.Errorf("%w: format %q cannot be exported", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return fmt.Errorf("failed to export tracks: %w", err)
	}

	r.writePlain("Exported %d tracks to %s\n", len(clips), path)
	return nil
}
