// Package api documents the AgentMarket HTTP API.
//
// Handlers live in api/handlers; this package holds the API overview used
// when generating Swagger documentation.
//
// # API Overview
//
// AgentMarket provides a RESTful API for:
//   - Capability search with exact or partial matching
//   - Top providers per capability and best-value ranking
//   - Progressive broadening of an over-constrained query
//   - Agent cards for catalog records
//   - Health monitoring and metrics
//
// # Authentication
//
// When API keys are configured, endpoints under /api/ require the
// X-API-Key header:
//
//	X-API-Key: your-api-key
//
// When a JWT secret is configured, a bearer token signed with HS256 is
// accepted instead:
//
//	Authorization: Bearer <token>
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// Prometheus metrics are served separately, on :9091/metrics by default.
//
// # Generating Documentation
//
//	swag init -g cmd/agentmarket/main.go -o api --parseDependency --parseInternal
package api
