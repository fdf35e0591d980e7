// Package server exposes the collected metrics over HTTP.
//
// It serves /metrics from a dedicated prometheus registry, a /healthz
// endpoint for container health checks, and a small landing page on /.
package server
