// package repositories implements SQLite persistence for generation history.
//
// JobRepository stores every clip the engine observes, keyed by the remote
// clip id. Saves upsert: a clip seen again in a later state overwrites the
// stored row, so the table always reflects the last known state. Deletes are
// soft via deleted_at timestamps and deleted records are excluded from
// queries.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/shared"
)

// JobRepository persists observed clips.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const clipColumns = `id, title, image_url, lyric, audio_url, video_url,
	remote_created_at, model_name, status, prompt, gpt_description_prompt,
	type, tags, negative_tags, duration, error_message`

// SaveClips upserts each clip in its current state.
func (r *JobRepository) SaveClips(ctx context.Context, clips []models.Clip) error {
	if len(clips) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO clips (` + clipColumns + `, saved_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			image_url = excluded.image_url,
			lyric = excluded.lyric,
			audio_url = excluded.audio_url,
			video_url = excluded.video_url,
			model_name = excluded.model_name,
			status = excluded.status,
			tags = excluded.tags,
			negative_tags = excluded.negative_tags,
			duration = excluded.duration,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	now := time.Now()
	for _, clip := range clips {
		if clip.ID == "" {
			return fmt.Errorf("%w: clip without an id", shared.ErrInvalidInput)
		}
		if _, err := tx.ExecContext(ctx, query,
			clip.ID,
			clip.Title,
			clip.ImageURL,
			clip.Lyric,
			clip.AudioURL,
			clip.VideoURL,
			clip.CreatedAt,
			clip.ModelName,
			clip.Status,
			clip.Prompt,
			clip.GPTPrompt,
			clip.Type,
			clip.Tags,
			clip.NegativeTags,
			clip.Duration,
			clip.ErrorMessage,
			now,
			now,
		); err != nil {
			return fmt.Errorf("failed to upsert clip %s: %w", clip.ID, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a clip by ID, excluding soft-deleted clips
func (r *JobRepository) Get(ctx context.Context, id string) (*models.Clip, error) {
	query := `
		SELECT ` + clipColumns + `
		FROM clips
		WHERE id = ? AND deleted_at IS NULL
	`
	clip, err := scanClip(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrClipNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query clip: %w", err)
	}
	return clip, nil
}

// List returns up to limit clips, most recently saved first. A limit of 0
// returns everything.
func (r *JobRepository) List(ctx context.Context, limit int) ([]models.Clip, error) {
	query := `
		SELECT ` + clipColumns + `
		FROM clips
		WHERE deleted_at IS NULL
		ORDER BY saved_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, *clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clips: %w", err)
	}
	return clips, nil
}

// ListByStatus returns non-deleted clips with the given status, most
// recently saved first.
func (r *JobRepository) ListByStatus(ctx context.Context, status string) ([]models.Clip, error) {
	query := `
		SELECT ` + clipColumns + `
		FROM clips
		WHERE status = ? AND deleted_at IS NULL
		ORDER BY saved_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, *clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clips: %w", err)
	}
	return clips, nil
}

// Delete soft-deletes a clip by setting deleted_at
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE clips SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete clip: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrClipNotFound, id)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanClip(s scanner) (*models.Clip, error) {
	var clip models.Clip
	err := s.Scan(
		&clip.ID,
		&clip.Title,
		&clip.ImageURL,
		&clip.Lyric,
		&clip.AudioURL,
		&clip.VideoURL,
		&clip.CreatedAt,
		&clip.ModelName,
		&clip.Status,
		&clip.Prompt,
		&clip.GPTPrompt,
		&clip.Type,
		&clip.Tags,
		&clip.NegativeTags,
		&clip.Duration,
		&clip.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &clip, nil
}
