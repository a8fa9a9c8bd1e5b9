// Package ratelimit implements per-client, per-class admission control over a
// trailing time window. It governs inbound requests only; outbound pacing of
// the generation service is handled by the orchestrator.
package ratelimit
