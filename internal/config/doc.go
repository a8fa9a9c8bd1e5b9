// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional YAML file. It provides type-safe
// access to settings for the server, the artifact store, the LLM client, the
// generation pipeline, rate limiting and caching.
package config
