/*
Package monitoring provides Prometheus metrics for the tracker backend.

Metrics live on a private registry rather than the global default, so tests
and embedded uses can build as many collectors as they like.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.RecordServoCommand("base", "manual", 130, nil)

	timer := monitoring.NewTimer(metrics, "device", "baseServo")
	err := send()
	timer.Stop(err)
*/
package monitoring
