package ui

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yanani99/reso/internal/models"
)

type fakeLister struct {
	clips []models.Clip
	err   error
	calls int
}

func (f *fakeLister) List(ctx context.Context, limit int) ([]models.Clip, error) {
	f.calls++
	return f.clips, f.err
}

func loadedModel(t *testing.T, lister *fakeLister) *Model {
	t.Helper()
	m := NewModel(context.Background(), lister, func(string) error { return nil })

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init returned no command")
	}
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	updated, _ = updated.(*Model).Update(cmd())
	return updated.(*Model)
}

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	clips := []models.Clip{
		{ID: "a", Title: "First", Status: models.StatusComplete, AudioURL: "https://cdn.example.com/a.mp3", Duration: "187.2"},
		{ID: "b", Title: "Second", Status: models.StatusError, ErrorMessage: "moderation"},
	}

	t.Run("loads clips into the list view", func(t *testing.T) {
		m := loadedModel(t, &fakeLister{clips: clips})
		view := m.View()
		if !strings.Contains(view, "First") {
			t.Errorf("list view missing clip title: %q", view)
		}
	})

	t.Run("load failure quits with the error shown", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeLister{err: fmt.Errorf("db locked")}, nil)
		updated, cmd := m.Update(clipsLoadedMsg{err: fmt.Errorf("db locked")})
		if cmd == nil {
			t.Error("expected a quit command")
		}
		if !strings.Contains(updated.View(), "db locked") {
			t.Errorf("error not rendered: %q", updated.View())
		}
	})

	t.Run("enter opens the detail view", func(t *testing.T) {
		m := loadedModel(t, &fakeLister{clips: clips})
		updated, _ := m.Update(keyMsg("enter"))
		dm := updated.(*Model)
		if dm.view != DetailView {
			t.Fatalf("view = %d, want DetailView", dm.view)
		}
		if !strings.Contains(dm.View(), "First") {
			t.Errorf("detail view missing the clip: %q", dm.View())
		}
		if !strings.Contains(dm.View(), "3:07") {
			t.Errorf("detail view missing the formatted length: %q", dm.View())
		}
	})

	t.Run("esc returns to the list", func(t *testing.T) {
		m := loadedModel(t, &fakeLister{clips: clips})
		updated, _ := m.Update(keyMsg("enter"))
		updated, _ = updated.(*Model).Update(keyMsg("esc"))
		if updated.(*Model).view != TrackListView {
			t.Error("esc did not return to the track list")
		}
	})

	t.Run("o opens the selected audio", func(t *testing.T) {
		var opened string
		lister := &fakeLister{clips: clips}
		m := NewModel(context.Background(), lister, func(url string) error {
			opened = url
			return nil
		})
		updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
		updated, _ = updated.(*Model).Update(m.Init()())
		updated, _ = updated.(*Model).Update(keyMsg("enter"))
		_, cmd := updated.(*Model).Update(keyMsg("o"))
		if cmd == nil {
			t.Fatal("expected an open command")
		}
		cmd()
		if opened != "https://cdn.example.com/a.mp3" {
			t.Errorf("opened %q, want the clip audio URL", opened)
		}
	})

	t.Run("o without audio warns instead of opening", func(t *testing.T) {
		lister := &fakeLister{clips: []models.Clip{clips[1]}}
		m := loadedModel(t, lister)
		updated, _ := m.Update(keyMsg("enter"))
		dm, cmd := updated.(*Model).Update(keyMsg("o"))
		if cmd != nil {
			t.Error("open command issued without an audio URL")
		}
		if !strings.Contains(dm.(*Model).status, "no audio") {
			t.Errorf("status %q missing the warning", dm.(*Model).status)
		}
	})

	t.Run("r reloads from the store", func(t *testing.T) {
		lister := &fakeLister{clips: clips}
		m := loadedModel(t, lister)
		_, cmd := m.Update(keyMsg("r"))
		if cmd == nil {
			t.Fatal("expected a reload command")
		}
		cmd()
		if lister.calls != 2 {
			t.Errorf("store listed %d times, want 2", lister.calls)
		}
	})
}
