package models

import "github.com/google/uuid"

const (
	StepCompleted = "completed"
	StepFailed    = "failed"
	StepStarted   = "started"
	StepSkipped   = "skipped"
)

type ProductionStep struct {
	Step   string `json:"step"`
	Phase  int    `json:"phase"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type EpisodeProducerResponse struct {
	Success         bool             `json:"success"`
	EpisodeID       string           `json:"episodeId"`
	Status          EpisodeStatus    `json:"status"`
	ProductionSteps []ProductionStep `json:"productionSteps"`
	SuccessRate     float64          `json:"successRate"`
	TotalTimeMs     int64            `json:"totalTimeMs"`
	ReadyForVideo   bool             `json:"readyForVideo"`
	JobID           string           `json:"jobId,omitempty"`
	Error           string           `json:"error,omitempty"`
}

type PromptToProductionResponse struct {
	Success    bool                      `json:"success"`
	Project    *Project                  `json:"project"`
	Characters []Character               `json:"characters"`
	Episodes   []Episode                 `json:"episodes"`
	Reports    []EpisodeProducerResponse `json:"reports"`
}

type BatchResult struct {
	EpisodeID        uuid.UUID `json:"episodeId"`
	EpisodeNumber    int       `json:"episodeNumber"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	VideoURL         string    `json:"videoUrl,omitempty"`
	Error            string    `json:"error,omitempty"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
}

type BatchRenderResponse struct {
	Success             bool          `json:"success"`
	TotalEpisodes       int           `json:"totalEpisodes"`
	SuccessCount        int           `json:"successCount"`
	FailCount           int           `json:"failCount"`
	TotalProcessingTime int64         `json:"totalProcessingTime"`
	Results             []BatchResult `json:"results"`
}

type RenderDispatchResponse struct {
	EpisodeID string    `json:"episode_id"`
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Attempts  int       `json:"attempts"`
}

type EpisodeListResponse struct {
	Episodes []Episode `json:"episodes"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
