package main

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/repositories"
	"github.com/yanani99/reso/internal/shared"
	"github.com/yanani99/reso/internal/tasks"
)

// Generate submits a generation request and streams progress to the terminal.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	config := r.configFor(cmd)

	req := models.GenerationRequest{
		Prompt:       cmd.String("prompt"),
		Tags:         cmd.String("tags"),
		Title:        cmd.String("title"),
		NegativeTags: cmd.String("negative-tags"),
		Instrumental: cmd.Bool("instrumental"),
		Model:        cmd.String("model"),
		Wait:         cmd.Bool("wait"),
		Custom:       cmd.Bool("custom"),
	}
	if req.Model == "" {
		req.Model = config.Generation.Model
	}

	r.logger.Info("starting generation", "custom", req.Custom, "wait", req.Wait)

	session, err := r.session(ctx, config)
	if err != nil {
		return err
	}

	engine := r.engine(config, session)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.KeepAlive, tasks.CaptchaCheck:
				r.writePlain("· %s\n", update.Message)
			case tasks.BrowserSolve:
				r.writePlain("🧩 %s\n", update.Message)
			case tasks.Submit:
				r.writePlain("🎵 %s\n", update.Message)
			case tasks.PollClips:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Generate(ctx, progressCh, req)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.saveClips(ctx, config, result.Clips)

	if cmd.Bool("json") {
		return r.writeJSON(result.Clips, cmd.Bool("pretty"))
	}

	r.writePlainln("")
	r.writePlainHeader("Generation Complete!")
	if result.FromBrowser {
		r.writePlain("Submitted through the browser session\n")
	}
	if result.Partial {
		r.writePlain("Polling window closed before all tracks finished\n")
	}
	for _, clip := range result.Clips {
		r.writePlain("%s  %s [%s]\n", clip.ID, clip.Title, clip.Status)
		if clip.AudioURL != "" {
			r.writePlain("   %s\n", clip.AudioURL)
		}
	}

	return nil
}

// saveClips persists generation results, tolerating a missing database so a
// generation never fails after the clips exist.
func (r *Runner) saveClips(ctx context.Context, config *shared.Config, clips []models.Clip) {
	if len(clips) == 0 {
		return
	}
	db, err := r.database(config)
	if err != nil {
		r.logger.Warn("skipping local save", "error", err)
		return
	}
	defer db.Close()

	repo := repositories.NewJobRepository(db)
	if err := repo.SaveClips(ctx, clips); err != nil {
		r.logger.Warn("failed to save clips locally", "error", err)
		return
	}
	r.logger.Debug("clips saved", "count", len(clips))
}
