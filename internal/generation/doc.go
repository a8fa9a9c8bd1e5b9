// Package generation defines the boundary between the application and the
// external text-generation service that writes coding problems.
//
// A Generator turns a prompt into free text and nothing more. BuildPrompt
// renders the prompt for a problem title, and ParseArtifact turns the model's
// free-text reply into the fields of a domain.Artifact, tolerating prose and
// code fences around the JSON object and minor formatting drift inside it.
//
// The Gemini-backed Generator lives in internal/platform/gemini.
package generation
