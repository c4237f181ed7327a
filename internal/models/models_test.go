package models_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reality-studio-backend/internal/models"
)

func TestEpisodeStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to models.EpisodeStatus
		ok       bool
	}{
		{models.StatusNotStarted, models.StatusDraft, true},
		{models.StatusDraft, models.StatusScriptReady, true},
		{models.StatusScriptReady, models.StatusManifestReady, true},
		{models.StatusManifestReady, models.StatusRendering, true},
		{models.StatusRendering, models.StatusProcessing, true},
		{models.StatusRendering, models.StatusCompleted, true},
		{models.StatusDraft, models.StatusFailed, true},
		{models.StatusDraft, models.StatusDraft, true},
		{models.StatusScriptReady, models.StatusDraft, false},
		{models.StatusProcessing, models.StatusRendering, false},
		{models.StatusCompleted, models.StatusRendering, true},
		{models.StatusFailed, models.StatusNotStarted, true},
		{models.StatusFailed, models.StatusDraft, false},
		{models.StatusCompleted, models.StatusFailed, false},
		{models.StatusDraft, "published", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
			err := models.CheckTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, models.ErrInvalidTransition))
			}
		})
	}
}

func TestEpisodeUpdate_Apply(t *testing.T) {
	e := &models.Episode{Title: "old", Status: models.StatusDraft, StatusVersion: 2}

	assert.True(t, models.EpisodeUpdate{}.Empty())

	title := "Pilot"
	upd := models.StatusUpdate(models.StatusScriptReady)
	upd.Title = &title
	assert.False(t, upd.Empty())
	upd.Apply(e)

	assert.Equal(t, "Pilot", e.Title)
	assert.Equal(t, models.StatusScriptReady, e.Status)
	assert.Equal(t, 3, e.StatusVersion)

	scenes := []models.Scene{{SceneNumber: 1, Duration: 4}}
	models.EpisodeUpdate{Storyboard: scenes}.Apply(e)
	scenes[0].Duration = 99
	assert.Equal(t, 4.0, e.Storyboard[0].Duration, "storyboard must be copied")
	assert.Equal(t, 3, e.StatusVersion, "non-status writes keep the version")

	models.FailureUpdate("engine down").Apply(e)
	assert.Equal(t, models.StatusFailed, e.Status)
	assert.Equal(t, "engine down", e.VideoRenderError)
	assert.Equal(t, 4, e.StatusVersion)
}

func TestValidateStoryboard(t *testing.T) {
	assert.NoError(t, models.ValidateStoryboard(nil))
	assert.NoError(t, models.ValidateStoryboard([]models.Scene{
		{SceneNumber: 1, Duration: 3}, {SceneNumber: 2, Duration: 8},
	}))

	err := models.ValidateStoryboard([]models.Scene{{SceneNumber: 1, Duration: 0}})
	assert.ErrorContains(t, err, "non-positive duration")

	err = models.ValidateStoryboard([]models.Scene{
		{SceneNumber: 2, Duration: 3}, {SceneNumber: 2, Duration: 3},
	})
	assert.ErrorContains(t, err, "strictly increasing")
}

func TestNewFrame_CopiesCharacters(t *testing.T) {
	s := models.Scene{SceneNumber: 3, Duration: 5, Dialogue: "Who did this?", Characters: []string{"Jade"}, SceneType: "confessional"}
	f := models.NewFrame(s, "https://cdn/img.png", "https://cdn/vo.mp3")
	s.Characters[0] = "Rex"

	assert.Equal(t, 3, f.SceneNumber)
	assert.Equal(t, "https://cdn/img.png", f.Image)
	assert.Equal(t, "https://cdn/vo.mp3", f.VoiceoverURL)
	assert.Equal(t, []string{"Jade"}, f.Characters)
	assert.Equal(t, "confessional", f.SceneType)
}

func TestVideoManifest_Validate(t *testing.T) {
	var nilManifest *models.VideoManifest
	assert.ErrorIs(t, nilManifest.Validate(), models.ErrEmptyManifest)
	assert.ErrorIs(t, (&models.VideoManifest{}).Validate(), models.ErrEmptyManifest)

	m := &models.VideoManifest{
		EpisodeID: uuid.New(),
		Frames:    []models.Frame{{SceneNumber: 1, Duration: 4}, {SceneNumber: 2, Duration: 5}},
	}
	m.TotalDuration = 9.5
	require.NoError(t, m.Validate(), "within tolerance")

	m.TotalDuration = 12
	assert.Error(t, m.Validate())
}
