// Package config provides 12-factor configuration for arch3d.
//
// Configuration is loaded from environment variables with defaults; the
// CLI overrides individual values with flags.
//
// Configuration Sections:
//   - Backend: where the generation backend listens
//   - Pipeline: image model, per-stage timeout, artifact directory
//   - Blender: the Arch Blender add-on endpoint
//   - Status: optional HTTP status/metrics listener
//   - Logging: log level and output format
//
// Environment Variables:
//   - BACKEND_HOST, BACKEND_PORT, BACKEND_SECURE
//   - IMAGE_MODEL, STAGE_TIMEOUT, OUTPUT_DIR
//   - BLENDER_URL, BLENDER_TIMEOUT, BLENDER_RETRIES
//   - STATUS_ADDR
//   - LOG_LEVEL, LOG_DEV
package config
