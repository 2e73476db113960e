package domain

import "strings"

// VideoMode records which video path a queue task takes. It is resolved once
// when the task is created and stored alongside it.
type VideoMode string

// Video modes
const (
	VideoModeStoryboard VideoMode = "storyboard"
	VideoModeLegacy     VideoMode = "legacy"
	VideoModeNone       VideoMode = "none"
)

// VideoSpec describes how a task's video is produced. The concrete type is
// one of StoryboardVideo, LegacyVideo or NoVideo.
type VideoSpec interface {
	Mode() VideoMode
	isVideoSpec()
}

// StoryboardVideo is a three-shot video seeded by the generated image.
type StoryboardVideo struct {
	Shots [3]string
}

// LegacyVideo is a single-prompt Veo3 video.
type LegacyVideo struct {
	Prompt string
}

// NoVideo means the task carries no usable video prompt.
type NoVideo struct{}

func (StoryboardVideo) Mode() VideoMode { return VideoModeStoryboard }
func (LegacyVideo) Mode() VideoMode     { return VideoModeLegacy }
func (NoVideo) Mode() VideoMode         { return VideoModeNone }

func (StoryboardVideo) isVideoSpec() {}
func (LegacyVideo) isVideoSpec()     {}
func (NoVideo) isVideoSpec()         {}

// ResolveVideoSpec picks the video path from the supplied prompts: all three
// storyboard parts win over a single legacy prompt.
func ResolveVideoSpec(legacyPrompt string, parts [3]string) VideoSpec {
	complete := true
	for i := range parts {
		if strings.TrimSpace(parts[i]) == "" {
			complete = false
			break
		}
	}
	if complete {
		return StoryboardVideo{Shots: parts}
	}
	if strings.TrimSpace(legacyPrompt) != "" {
		return LegacyVideo{Prompt: legacyPrompt}
	}
	return NoVideo{}
}
