// Package export hands finished meshes to external tools.
//
// BlenderClient talks to the "Arch Blender" add-on, which listens on
// http://localhost:5666 and imports any GLB POSTed to /upload. The add-on
// answers 204 on success and 500 with a message when the import fails.
//
// Example Usage:
//
//	client := export.NewBlenderClient(export.BlenderConfig{URL: "http://localhost:5666"}, logger, metrics)
//	if err := client.Send(ctx, mesh); err != nil {
//		logger.Warn("Blender export failed", zap.Error(err))
//	}
package export
