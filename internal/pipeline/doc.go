// Package pipeline chains the backend's generation stages.
//
// Each stage is one WebSocket operation driven by its own process.Channel:
//
//	remove-background   image bytes  -> cut-out PNG
//	generate-image      JSON prompt  -> WEBP image
//	generate-3d-view    image bytes  -> radiance-field PLY
//	generate-3d-model   view bytes   -> GLB mesh
//
// A Request is an immutable value passed into every stage; no state is kept
// between stages other than the artifact handed to the next one. Every stage
// resends its full input, so the backend needs no session memory.
package pipeline
