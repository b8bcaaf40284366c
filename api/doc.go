// Package api documents the AgentOrch HTTP API.
//
// # API Overview
//
// AgentOrch exposes a small JSON API over the workflow orchestrator:
//
//	POST /api/v1/agents/execute      run one agent synchronously
//	POST /api/v1/agents/stream       run one agent, Server-Sent Events
//	GET  /api/v1/agents/stream/ws    run one agent over a WebSocket
//	GET  /api/v1/agents              agent catalogue (?capability=, ?provider=, ?task=)
//	GET  /api/v1/agents/{name}       one agent
//	POST /api/v1/workflows/execute   run a library or inline workflow
//	GET  /api/v1/workflows           workflow library with required variables
//	GET  /api/v1/workflows/active    workflows currently running
//	GET  /api/v1/metrics             execution ledger aggregate
//
// Operational endpoints (/health, /healthz, /ready, /version) are served on
// the same listener; Prometheus metrics are served on a separate port.
//
// # Response Envelope
//
// Every JSON response uses handlers.Response:
//
//	{"success": true, "data": {...}, "timestamp": "...", "request_id": "..."}
//
// # Stream Frames
//
// Both streaming transports send JSON frames of the form
// {"type": "...", "data": {...}} with type one of start, content, tool,
// end, complete or error.
package api
