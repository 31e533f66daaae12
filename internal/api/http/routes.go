package http

import "github.com/gin-gonic/gin"

// Register mounts every REST route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Metrics)
	r.GET("/metrics/json", h.MetricsSnapshot)
	r.GET("/manifest", h.Manifest)

	solar := r.Group("/solar")
	solar.GET("/position", h.SolarPosition)
	solar.GET("/profile", h.SolarProfile)

	servos := r.Group("/servo")
	servos.GET("", h.GetServo)
	servos.PUT("/:servo", h.SetServo)
	servos.POST("/:servo/adjust", h.AdjustServo)
	servos.POST("/:servo/preset/:preset", h.PresetServo)
	servos.POST("/:servo/rotate/:direction", h.RotateBase)

	tracking := r.Group("/tracking")
	tracking.GET("", h.TrackingStatus)
	tracking.POST("/start", h.StartTracking)
	tracking.POST("/stop", h.StopTracking)
	tracking.POST("/update", h.UpdateTracking)

	r.GET("/weather", h.Weather)

	r.GET("/location", h.GetLocation)
	r.PUT("/location", h.SetLocation)
	r.DELETE("/location", h.ClearLocation)

	if h.device != nil {
		r.GET("/device", h.GetDevice)
		r.PUT("/device", h.SetDevice)
		r.POST("/device/ping", h.PingDevice)
	}

	if h.commands != nil {
		r.POST("/commands", h.HandleCommand)
		r.GET("/commands/help", h.CommandHelp)
	}
}
