package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reality-studio-backend/internal/store"
)

type JobsHandler struct {
	jobs store.JobStore
}

func NewJobsHandler(jobs store.JobStore) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// GetJob godoc
// @Summary     Get background job
// @Description Returns a render job record.
// @Tags        jobs
// @Produce     json
// @Security    Bearer
// @Param       job_id path string true "Job ID"
// @Success     200 {object} models.Job
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /jobs/{job_id} [get]
func (h *JobsHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		badRequest(c, "invalid job id", err.Error())
		return
	}
	job, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, "job not found", err)
		return
	}
	c.JSON(http.StatusOK, job)
}
