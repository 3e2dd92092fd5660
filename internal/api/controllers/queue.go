package controllers

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/mramrohaleem/telegram-bot/internal/app"
	"github.com/mramrohaleem/telegram-bot/internal/domain"
	"github.com/mramrohaleem/telegram-bot/internal/queue"
)

type QueueController struct {
	App   *app.Context
	Queue *queue.Manager
}

func (ctrl *QueueController) Health(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListJobs returns every job the store has seen, newest last (KSUIDs sort
// chronologically, so callers can order client-side by id).
func (ctrl *QueueController) ListJobs(c *echo.Context) error {
	return c.JSON(http.StatusOK, toJobViews(ctrl.Queue.Jobs()))
}

func (ctrl *QueueController) GetJob(c *echo.Context) error {
	job, ok := ctrl.Queue.Job(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	return c.JSON(http.StatusOK, toJobView(job))
}

func (ctrl *QueueController) CancelJob(c *echo.Context) error {
	notify := c.QueryParam("notify") != "false"

	err := ctrl.Queue.CancelJob(c.Request().Context(), c.Param("id"), notify)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *QueueController) GetBatchStats(c *echo.Context) error {
	return c.JSON(http.StatusOK, ctrl.Queue.BatchStats(c.Param("id")))
}

// GetBatchJobs lists batch members, optionally filtered with ?status=failed.
func (ctrl *QueueController) GetBatchJobs(c *echo.Context) error {
	status := domain.JobStatus(c.QueryParam("status"))
	jobs := ctrl.Queue.BatchJobs(c.Param("id"), status)
	return c.JSON(http.StatusOK, toJobViews(jobs))
}

func (ctrl *QueueController) CancelBatch(c *echo.Context) error {
	notify := c.QueryParam("notify") != "false"
	ctrl.Queue.CancelBatch(c.Request().Context(), c.Param("id"), notify)
	return c.NoContent(http.StatusNoContent)
}
