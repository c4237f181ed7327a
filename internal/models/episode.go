package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EpisodeStatus string

const (
	StatusNotStarted    EpisodeStatus = "not_started"
	StatusDraft         EpisodeStatus = "draft"
	StatusScriptReady   EpisodeStatus = "script_ready"
	StatusManifestReady EpisodeStatus = "manifest_ready"
	StatusRendering     EpisodeStatus = "rendering"
	StatusProcessing    EpisodeStatus = "processing"
	StatusCompleted     EpisodeStatus = "completed"
	StatusFailed        EpisodeStatus = "failed"
)

var ErrInvalidTransition = errors.New("invalid episode status transition")

var statusRank = map[EpisodeStatus]int{
	StatusNotStarted:    0,
	StatusDraft:         1,
	StatusScriptReady:   2,
	StatusManifestReady: 3,
	StatusRendering:     4,
	StatusProcessing:    4,
	StatusCompleted:     5,
	StatusFailed:        5,
}

func (s EpisodeStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether s ends a pipeline run.
func (s EpisodeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces the forward-only episode lifecycle. failed is
// reachable from every in-flight state, and a terminal episode may only be
// retried by re-entering not_started or rendering.
func (s EpisodeStatus) CanTransitionTo(next EpisodeStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.Terminal() {
		return next == StatusNotStarted || next == StatusRendering
	}
	if next == StatusFailed {
		return true
	}
	if s == StatusRendering && next == StatusProcessing {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// CheckTransition returns ErrInvalidTransition wrapped with both states.
func CheckTransition(from, to EpisodeStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

type Episode struct {
	ID                uuid.UUID      `json:"id"`
	ProjectID         uuid.UUID      `json:"project_id"`
	EpisodeNumber     int            `json:"episode_number"`
	Season            int            `json:"season"`
	Title             string         `json:"title"`
	Synopsis          string         `json:"synopsis"`
	Script            string         `json:"script"`
	Storyboard        []Scene        `json:"storyboard"`
	Status            EpisodeStatus  `json:"status"`
	StatusVersion     int            `json:"status_version"`
	VideoURL          string         `json:"video_url,omitempty"`
	VideoRenderError  string         `json:"video_render_error,omitempty"`
	Manifest          *VideoManifest `json:"manifest,omitempty"`
	RenderStartedAt   *time.Time     `json:"render_started_at,omitempty"`
	RenderCompletedAt *time.Time     `json:"render_completed_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// EpisodeUpdate is a partial update. Nil fields are left untouched so each
// stage writes only the columns it owns.
type EpisodeUpdate struct {
	Title             *string
	Synopsis          *string
	Script            *string
	Storyboard        []Scene
	Status            *EpisodeStatus
	VideoURL          *string
	VideoRenderError  *string
	Manifest          *VideoManifest
	RenderStartedAt   *time.Time
	RenderCompletedAt *time.Time
}

func (u EpisodeUpdate) Empty() bool {
	return u.Title == nil && u.Synopsis == nil && u.Script == nil && u.Storyboard == nil &&
		u.Status == nil && u.VideoURL == nil && u.VideoRenderError == nil && u.Manifest == nil &&
		u.RenderStartedAt == nil && u.RenderCompletedAt == nil
}

// Apply copies the set fields onto e. The status transition must already
// have been checked by the caller.
func (u EpisodeUpdate) Apply(e *Episode) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Synopsis != nil {
		e.Synopsis = *u.Synopsis
	}
	if u.Script != nil {
		e.Script = *u.Script
	}
	if u.Storyboard != nil {
		e.Storyboard = append([]Scene(nil), u.Storyboard...)
	}
	if u.Status != nil {
		e.Status = *u.Status
		e.StatusVersion++
	}
	if u.VideoURL != nil {
		e.VideoURL = *u.VideoURL
	}
	if u.VideoRenderError != nil {
		e.VideoRenderError = *u.VideoRenderError
	}
	if u.Manifest != nil {
		m := *u.Manifest
		e.Manifest = &m
	}
	if u.RenderStartedAt != nil {
		t := *u.RenderStartedAt
		e.RenderStartedAt = &t
	}
	if u.RenderCompletedAt != nil {
		t := *u.RenderCompletedAt
		e.RenderCompletedAt = &t
	}
}

// StatusUpdate is shorthand for an update that only moves the status.
func StatusUpdate(s EpisodeStatus) EpisodeUpdate {
	return EpisodeUpdate{Status: &s}
}

// FailureUpdate marks the episode failed with a render error message.
func FailureUpdate(msg string) EpisodeUpdate {
	s := StatusFailed
	return EpisodeUpdate{Status: &s, VideoRenderError: &msg}
}

type Scene struct {
	SceneNumber int      `json:"scene_number"`
	Location    string   `json:"location"`
	Characters  []string `json:"characters"`
	Action      string   `json:"action"`
	Emotion     string   `json:"emotion,omitempty"`
	MusicCue    string   `json:"music_cue,omitempty"`
	SceneType   string   `json:"scene_type,omitempty"`
	Duration    float64  `json:"duration"`
	Dialogue    string   `json:"dialogue,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// ValidateStoryboard checks the ordering and duration invariants of a scene
// sequence.
func ValidateStoryboard(scenes []Scene) error {
	for i, s := range scenes {
		if s.Duration <= 0 {
			return fmt.Errorf("scene %d has non-positive duration %.2f", s.SceneNumber, s.Duration)
		}
		if i > 0 && s.SceneNumber <= scenes[i-1].SceneNumber {
			return fmt.Errorf("scene numbers not strictly increasing at index %d (%d after %d)",
				i, s.SceneNumber, scenes[i-1].SceneNumber)
		}
	}
	return nil
}

// Frame is a rendering-ready scene. Frames are never mutated; regenerating
// a scene produces a new Frame.
type Frame struct {
	SceneNumber  int      `json:"sceneNumber"`
	Image        string   `json:"image"`
	Duration     float64  `json:"duration"`
	Dialogue     string   `json:"dialogue"`
	Characters   []string `json:"characters"`
	VoiceoverURL string   `json:"voiceover,omitempty"`
	SceneType    string   `json:"sceneType,omitempty"`
}

// NewFrame derives a frame from a scene and its resolved media.
func NewFrame(s Scene, imageURL, voiceoverURL string) Frame {
	chars := append([]string{}, s.Characters...)
	return Frame{
		SceneNumber:  s.SceneNumber,
		Image:        imageURL,
		Duration:     s.Duration,
		Dialogue:     s.Dialogue,
		Characters:   chars,
		VoiceoverURL: voiceoverURL,
		SceneType:    s.SceneType,
	}
}
