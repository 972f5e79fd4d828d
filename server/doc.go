// Package server provides the HTTP server: Gin routing served over
// HTTP/1.1 and h2c, a standard middleware stack and the operational
// endpoints, wrapped as a lifecycle component.
//
// # Middleware
//
// ApplyMiddleware installs, around the whole engine, panic recovery,
// request ids, a request body limit and request logging; on the engine it
// adds CORS (gin-contrib/cors) and OpenTelemetry request metrics. Rate
// limiters are per-route gin handlers whose janitors are registered with
// AddCloser so they stop with the server.
//
// # Endpoints
//
// RegisterDefaultEndpoints adds /health, /readiness, /liveness, /info,
// /version and /metrics plus JSON 404/405 fallbacks.
package server
