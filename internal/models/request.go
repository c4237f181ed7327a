package models

type EpisodeProducerRequest struct {
	EpisodeID string `json:"episodeId" binding:"required"`
	ProjectID string `json:"projectId" binding:"required"`
	// Optional prompt override. Defaults to the episode synopsis, then the
	// project prompt.
	Prompt string `json:"prompt,omitempty"`
}

type PromptToProductionRequest struct {
	Prompt            string `json:"prompt"`
	SeasonCount       int    `json:"seasonCount"`
	EpisodesPerSeason int    `json:"episodesPerSeason"`
}

type BatchRenderRequest struct {
	EpisodeManifests []EpisodeManifestInput `json:"episode_manifests"`
	Settings         RenderSettings         `json:"settings"`
	OutputPaths      []string               `json:"output_paths"`
}

type EpisodeManifestInput struct {
	EpisodeID     string         `json:"episode_id"`
	EpisodeNumber int            `json:"episode_number"`
	Title         string         `json:"title"`
	Manifest      *VideoManifest `json:"manifest,omitempty"`
}

type RenderSettings struct {
	FrameRate         int      `json:"frame_rate"`
	Resolution        string   `json:"resolution"`
	AudioFile         string   `json:"audio_file"`
	Transitions       []string `json:"transitions"`
	OutputFormat      string   `json:"output_format"`
	AudioInstructions string   `json:"audio_instructions"`
	Quality           string   `json:"quality,omitempty"`
	OutputPath        string   `json:"output_path,omitempty"`
}

// WithDefaults fills the fields a caller left empty.
func (s RenderSettings) WithDefaults() RenderSettings {
	if s.FrameRate <= 0 {
		s.FrameRate = 30
	}
	if s.Resolution == "" {
		s.Resolution = "1920x1080"
	}
	if s.OutputFormat == "" {
		s.OutputFormat = "mp4"
	}
	if s.Quality == "" {
		s.Quality = "broadcast"
	}
	return s
}

type RenderRequest struct {
	Settings *RenderSettings `json:"settings,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	// SuggestedAction is set when the caller can do something about it.
	SuggestedAction string `json:"suggested_action,omitempty"`
}
