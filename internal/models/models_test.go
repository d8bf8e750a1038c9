package models

import "testing"

func TestClipStates(t *testing.T) {
	t.Run("Finished", func(t *testing.T) {
		for _, status := range []string{StatusComplete, StatusStreaming} {
			if !(Clip{Status: status}).Finished() {
				t.Errorf("expected %s to be finished", status)
			}
		}
		for _, status := range []string{StatusQueued, StatusSubmitted, StatusError} {
			if (Clip{Status: status}).Finished() {
				t.Errorf("expected %s to not be finished", status)
			}
		}
	})

	t.Run("AllFinished", func(t *testing.T) {
		t.Run("Mixed", func(t *testing.T) {
			clips := []Clip{{Status: StatusComplete}, {Status: StatusQueued}}
			if AllFinished(clips) {
				t.Error("expected mixed statuses to not be finished")
			}
		})

		t.Run("Complete And Streaming", func(t *testing.T) {
			clips := []Clip{{Status: StatusComplete}, {Status: StatusStreaming}}
			if !AllFinished(clips) {
				t.Error("expected complete+streaming to count as finished")
			}
		})

		t.Run("Empty", func(t *testing.T) {
			if AllFinished(nil) {
				t.Error("expected empty slice to not be finished")
			}
		})
	})

	t.Run("AllFailed", func(t *testing.T) {
		t.Run("All Errors", func(t *testing.T) {
			clips := []Clip{{Status: StatusError}, {Status: StatusError}}
			if !AllFailed(clips) {
				t.Error("expected all-error clips to be failed")
			}
		})

		t.Run("One Survivor", func(t *testing.T) {
			clips := []Clip{{Status: StatusError}, {Status: StatusStreaming}}
			if AllFailed(clips) {
				t.Error("expected surviving clip to prevent failure")
			}
		})

		t.Run("Empty", func(t *testing.T) {
			if AllFailed(nil) {
				t.Error("expected empty slice to not be failed")
			}
		})
	})
}

func TestClipIDs(t *testing.T) {
	clips := []Clip{{ID: "a"}, {ID: "b"}}
	ids := ClipIDs(clips)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("unexpected ids: %v", ids)
	}
}
