package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// ManifestDurationTolerance absorbs transition overlap between frames.
const ManifestDurationTolerance = 1.0

var ErrEmptyManifest = errors.New("manifest has no frames")

// VideoManifest is the hand-off document consumed by the compositor and the
// front-end player. Field names are part of the wire contract.
type VideoManifest struct {
	EpisodeID     uuid.UUID        `json:"episodeId"`
	TotalDuration float64          `json:"totalDuration"`
	Frames        []Frame          `json:"frames"`
	AudioURL      string           `json:"audioUrl"`
	Metadata      ManifestMetadata `json:"metadata"`
}

type ManifestMetadata struct {
	Style          string    `json:"style"`
	Prompt         string    `json:"prompt"`
	GeneratedAt    time.Time `json:"generatedAt"`
	CharactersUsed []string  `json:"charactersUsed"`
}

// Validate checks the compositing preconditions: at least one frame and a
// total duration matching the frames within tolerance.
func (m *VideoManifest) Validate() error {
	if m == nil || len(m.Frames) == 0 {
		return ErrEmptyManifest
	}
	var sum float64
	for _, f := range m.Frames {
		sum += f.Duration
	}
	if math.Abs(sum-m.TotalDuration) > ManifestDurationTolerance {
		return errors.New("manifest total duration does not match frame durations")
	}
	return nil
}
