// Package http exposes pipeline status over HTTP.
package http
