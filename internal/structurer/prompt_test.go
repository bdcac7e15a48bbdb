package structurer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptEmbedsMessageAndHeaders(t *testing.T) {
	prompt := BuildPrompt("My VPN won't connect {today}")

	assert.Contains(t, prompt, `USER MESSAGE: "My VPN won't connect {today}"`)
	for _, marker := range []string{
		"CONTEXT & ACKNOWLEDGMENT:",
		"DIAGNOSTIC QUESTIONS:",
		"ANALYSIS & EXPLANATION:",
		"TROUBLESHOOTING STEPS:",
		"IMMEDIATE ACTIONS:",
		"FOLLOW-UP GUIDANCE:",
	} {
		assert.Contains(t, prompt, marker)
	}
}

func TestBuildPromptHeadersAreRecognizedByParser(t *testing.T) {
	for _, h := range headerMarkers {
		assert.Contains(t, BuildPrompt(""), h.markers[0])
	}
}
