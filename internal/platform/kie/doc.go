// Package kie implements generation.Provider against the kie.ai API.
//
// Images and storyboard videos go through the generic jobs API
// (createTask / recordInfo). Single-prompt Veo3 videos use the dedicated
// Veo endpoints, which report progress with a numeric success flag.
package kie
