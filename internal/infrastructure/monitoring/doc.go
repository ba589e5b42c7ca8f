/*
Package monitoring provides Prometheus metrics for the script engine.

# Metrics

  - nodejs_http_requests_duration_seconds: histogram by method, path, statusCode, projectId
  - nodejs_http_requests_duration_seconds_max: slowest request by method, path, projectId
  - atp_itf_lite_script_engine_requests_size_bytes: bytes of returned requests by projectId
  - atp_itf_lite_script_engine_responses_size_bytes: bytes of echoed responses by projectId
  - atp_itf_lite_script_engine_context_size_total: variables loaded by projectId

Requests without an X-Project-Id header are labelled "unknown".

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

	// exposed on the separate monitoring listener
	monitor.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
