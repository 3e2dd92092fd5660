package controllers

import (
	"time"

	"github.com/mramrohaleem/telegram-bot/internal/domain"
)

// JobView is the JSON shape of a job as the API exposes it.
type JobView struct {
	ID         string           `json:"id"`
	UserID     int64            `json:"user_id"`
	ChatID     int64            `json:"chat_id"`
	URL        string           `json:"url"`
	Title      string           `json:"title"`
	Format     string           `json:"format"`
	BatchID    string           `json:"batch_id,omitempty"`
	Status     domain.JobStatus `json:"status"`
	Progress   float64          `json:"progress"`
	LastError  string           `json:"last_error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	CustomName string           `json:"custom_name,omitempty"`
}

func toJobView(job *domain.Job) JobView {
	return JobView{
		ID:         job.ID,
		UserID:     job.UserID,
		ChatID:     job.ChatID,
		URL:        job.URL,
		Title:      job.Metadata.Title,
		Format:     job.Format.Label,
		BatchID:    job.BatchID,
		Status:     job.Status(),
		Progress:   job.Progress(),
		LastError:  job.LastError(),
		CreatedAt:  job.CreatedAt,
		CustomName: job.CustomName,
	}
}

func toJobViews(jobs []*domain.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, toJobView(job))
	}
	return views
}
