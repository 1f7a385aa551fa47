package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
)

type routeHandlers struct {
	timetable *handler.TimetableHandler
	schedules *handler.ScheduleHandler
	drag      *handler.DragSessionHandler
	metrics   *handler.MetricsHandler
}

// registerRoutes mounts the API under prefix. Stored-schedule routes are mounted only when their
// handlers are present.
func registerRoutes(r *gin.Engine, prefix string, h routeHandlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/metrics/summary", h.metrics.Summary)

	timetable := api.Group("/timetable")
	timetable.POST("/check-move", h.timetable.CheckMove)
	timetable.POST("/move-lesson", h.timetable.MoveLesson)
	timetable.POST("/rooms", h.timetable.Rooms)

	if h.schedules == nil {
		return
	}
	schedules := api.Group("/schedules")
	schedules.POST("", h.schedules.Import)
	schedules.GET("/:id", h.schedules.Get)
	schedules.POST("/:id/check-move", h.schedules.CheckMove)
	schedules.POST("/:id/rooms", h.schedules.Rooms)
	schedules.GET("/:id/moves", h.schedules.History)
	schedules.POST("/:id/moves", h.schedules.Commit)
	schedules.GET("/:id/audit", h.schedules.Audit)
	schedules.POST("/:id/audit", h.schedules.RunAudit)
	schedules.GET("/:id/export", h.schedules.Export)

	if h.drag == nil {
		return
	}
	drag := schedules.Group("/:id/drag-sessions/:client")
	drag.GET("", h.drag.Get)
	drag.POST("/start", h.drag.Start)
	drag.POST("/hover", h.drag.Hover)
	drag.POST("/drop", h.drag.Drop)
	drag.POST("/confirm", h.drag.Confirm)
	drag.POST("/cancel", h.drag.Cancel)
}
