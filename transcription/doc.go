// Package transcription defines the contract every speech-to-text backend
// implements, the error taxonomy callers branch on and a registry of
// named backend factories.
//
// # Backends
//
//   - transcription/openai: OpenAI audio transcription API (whisper-1)
//   - transcription/whisper: self-hosted faster-whisper sidecar
//
// # Usage
//
//	reg := transcription.NewRegistry()
//	reg.Register(openai.ProviderName, openai.Factory())
//	p, err := reg.Create("openai", settings)
//	resp, err := p.Transcribe(ctx, transcription.TranscriptionRequest{
//	    Audio: f, FileName: "a.mp3", Language: "en", Credential: key,
//	})
//
// Failures are reported as *ProviderError with a Kind of auth, connection
// or api, so callers can tell a rejected credential from an unreachable
// backend without parsing messages.
package transcription
