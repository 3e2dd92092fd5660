package api

import (
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/mramrohaleem/telegram-bot/internal/api/controllers"
	"github.com/mramrohaleem/telegram-bot/internal/app"
	"github.com/mramrohaleem/telegram-bot/internal/queue"
)

func RegisterRoutes(e *echo.Echo, app *app.Context, q *queue.Manager) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	queueCtrl := &controllers.QueueController{App: app, Queue: q}

	e.GET("/healthz", queueCtrl.Health)

	// Queue control surface for operators and presentation layers
	e.GET("/api/jobs", queueCtrl.ListJobs)
	e.GET("/api/jobs/:id", queueCtrl.GetJob)
	e.POST("/api/jobs/:id/cancel", queueCtrl.CancelJob)
	e.GET("/api/batches/:id", queueCtrl.GetBatchStats)
	e.GET("/api/batches/:id/jobs", queueCtrl.GetBatchJobs)
	e.POST("/api/batches/:id/cancel", queueCtrl.CancelBatch)
}
