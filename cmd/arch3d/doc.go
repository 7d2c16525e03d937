// Command arch3d turns a text prompt or an image into a 3D mesh using a
// remote generation backend.
//
// Each stage runs over its own WebSocket:
//
//	prompt -> generate-image    -> generate-3d-view -> generate-3d-model
//	image  -> remove-background -> generate-3d-view -> generate-3d-model
//
// Artifacts are written to <out>/<run id>/<stage><ext>. With -blender the
// final GLB is also sent to the Blender add-on.
//
// Configuration:
//   - Environment variables (BACKEND_HOST, IMAGE_MODEL, STATUS_ADDR, ...)
//   - CLI flags (override env vars)
//
// Usage:
//
//	arch3d -prompt "a brick cottage" -model sana
//	arch3d -image sketch.png -until view
//	arch3d -batch jobs.yaml -status-addr :9090 -blender
//
// Signals:
//   - SIGINT, SIGTERM: abandon the running stage and exit
package main
