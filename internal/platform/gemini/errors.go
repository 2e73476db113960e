package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrNoVideo is returned when a finished operation carries no video.
	ErrNoVideo = errors.New("veo operation finished without a video")
)
