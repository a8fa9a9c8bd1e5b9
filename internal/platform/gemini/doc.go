// Package gemini provides an implementation of the generation.Generator
// interface backed by Google's Gemini API.
//
// This package is an infrastructure adapter in the hexagonal architecture.
// It sends an already-rendered prompt to the model, asks for a JSON reply
// and returns the reply text untouched; prompt rendering and response parsing
// belong to the generation package and retry belongs to the caller.
//
// Every failure is reported as a *generation.ServiceError. Replies stopped
// by safety filters additionally match generation.ErrContentBlocked.
package gemini
