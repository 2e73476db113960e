// Package gemini provides a generation.Provider that renders single-prompt
// videos with Veo through Google's Gemini API.
//
// This package is an infrastructure adapter: it translates generation
// requests into long-running GenerateVideos operations and maps operation
// state back onto generation.Status without exposing genai types to the
// rest of the application.
//
// The operation name returned by the API is used as the provider task ID,
// so a task persisted before a crash can be resumed by name.
package gemini
