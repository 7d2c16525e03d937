// Package server hosts the optional HTTP status surface.
package server
