package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-financing/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Get statistics about background jobs (active, completed, failed, scheduled)
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} jobs.WorkerStats
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	status := h.jobService.GetStatus()
	c.JSON(http.StatusOK, status)
}

// @Summary Run moratory sweep
// @Description Queue a moratory interest recalculation over every overdue sale (Admin)
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 202 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /jobs/moratory_sweep [post]
func (h *JobHandler) TriggerMoratorySweep(c *gin.Context) {
	if !h.jobService.TriggerMoratorySweep() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "El servidor se está deteniendo"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Recálculo de intereses moratorios en cola"})
}
