package agent

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

func TestComposeInstructions_Order(t *testing.T) {
	spec := models.AgentSpec{
		Name:         "Coder",
		Role:         "Implementation",
		Instructions: "Write the scraper.",
		Capabilities: []string{"coding", "testing"},
	}
	got := ComposeInstructions(spec, "Build a web scraper")

	parts := []string{
		"TASK CONTEXT: Build a web scraper",
		"ROLE: Implementation",
		"Write the scraper.",
		"Your capabilities include:\n- coding\n- testing",
		collaborationFooter,
	}
	last := -1
	for _, p := range parts {
		idx := strings.Index(got, p)
		if idx == -1 {
			t.Fatalf("missing %q in:\n%s", p, got)
		}
		if idx <= last {
			t.Errorf("%q out of order in:\n%s", p, got)
		}
		last = idx
	}
	if !strings.HasSuffix(got, collaborationFooter) {
		t.Error("footer should close the instructions")
	}
}

func TestComposeInstructions_NoCapabilities(t *testing.T) {
	got := ComposeInstructions(models.AgentSpec{Name: "A", Role: "r", Instructions: "i"}, "task")
	if strings.Contains(got, "Your capabilities include") {
		t.Errorf("empty capabilities should omit the section:\n%s", got)
	}
}
