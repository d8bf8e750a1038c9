package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/yanani99/reso/internal/repositories"
	"github.com/yanani99/reso/internal/shared"
)

// Status fetches the current state of one or more clips from the feed.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringArgs("ids")
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one clip id is required", shared.ErrMissingArgument)
	}

	config := r.configFor(cmd)
	session, err := r.session(ctx, config)
	if err != nil {
		return err
	}

	clips, err := session.Feed(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	if cmd.Bool("save") {
		if db, err := r.database(config); err == nil {
			defer db.Close()
			if err := repositories.NewJobRepository(db).SaveClips(ctx, clips); err != nil {
				r.logger.Warn("failed to save clips locally", "error", err)
			}
		} else {
			r.logger.Warn("skipping local save", "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(clips, cmd.Bool("pretty"))
	}

	for _, clip := range clips {
		r.writePlain("%s  %s [%s]\n", clip.ID, clip.Title, clip.Status)
		if clip.AudioURL != "" {
			r.writePlain("   %s\n", clip.AudioURL)
		}
		if clip.ErrorMessage != "" {
			r.writePlain("   error: %s\n", clip.ErrorMessage)
		}
	}
	return nil
}

// Credits prints the account's remaining generation allowance.
func (r *Runner) Credits(ctx context.Context, cmd *cli.Command) error {
	config := r.configFor(cmd)
	session, err := r.session(ctx, config)
	if err != nil {
		return err
	}

	credits, err := session.Credits(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch credits: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(credits, true)
	}

	r.writePlainHeader("Account Credits")
	r.writePlain("Remaining: %d\n", credits.CreditsLeft)
	r.writePlain("Period: %s\n", credits.Period)
	r.writePlain("Monthly: %d/%d\n", credits.MonthlyUsage, credits.MonthlyLimit)
	return nil
}

// Lyrics generates standalone lyrics from a prompt.
func (r *Runner) Lyrics(ctx context.Context, cmd *cli.Command) error {
	prompt := cmd.StringArg("prompt")
	if prompt == "" {
		return fmt.Errorf("%w: a lyrics prompt is required", shared.ErrMissingArgument)
	}

	config := r.configFor(cmd)
	session, err := r.session(ctx, config)
	if err != nil {
		return err
	}

	result, err := session.Lyrics(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to generate lyrics: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	if result.Title != "" {
		r.writePlainHeader(result.Title)
	}
	r.writePlain("%s\n", result.Text)
	return nil
}

// Concat joins an extended clip with its source into one full track.
func (r *Runner) Concat(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: a clip id is required", shared.ErrMissingArgument)
	}

	config := r.configFor(cmd)
	session, err := r.session(ctx, config)
	if err != nil {
		return err
	}

	clip, err := session.Concatenate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to concatenate clip: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(clip, true)
	}

	r.writePlain("%s  %s [%s]\n", clip.ID, clip.Title, clip.Status)
	if clip.AudioURL != "" {
		r.writePlain("   %s\n", clip.AudioURL)
	}
	return nil
}
