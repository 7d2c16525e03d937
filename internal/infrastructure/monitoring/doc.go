/*
Package monitoring provides Prometheus metrics for arch3d.

# Overview

Metrics live on an explicit registry so several collectors can coexist in
one process (tests create one per case). Metrics implements
process.Observer, so every Channel built with process.WithObserver reports
its lifecycle here.

# Metrics

  - arch3d_channel_starts_total{endpoint}
  - arch3d_channel_outcomes_total{endpoint,outcome}
  - arch3d_channel_duration_seconds{endpoint}
  - arch3d_channel_progress{endpoint}
  - arch3d_channel_payload_bytes{endpoint}
  - arch3d_channels_active
  - arch3d_stage_runs_total{stage,status}
  - arch3d_stage_duration_seconds{stage}
  - arch3d_exports_total{target,status}
  - arch3d_http_requests_total{method,path,status}
  - arch3d_http_request_duration_seconds{method,path}

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	ch := process.NewChannel(target, "generate-image", process.WithObserver(metrics))
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
