package orchestrator

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// words returns a task of n words with no tier keywords.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

func TestClassify_Keywords(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        models.ComplexityTier
	}{
		{"no keyword", "Summarize a research topic", models.TierSimple},
		{"medium analyze", "Analyze this quarter's sales", models.TierMedium},
		{"medium compare", "Compare two note-taking apps", models.TierMedium},
		{"complex build", "Build a todo list CLI", models.TierComplex},
		{"complex web application", "A web application with user login", models.TierComplex},
		{"enterprise keyword", "Roll out an enterprise data catalog", models.TierEnterprise},
		{"enterprise production", "Harden the production deploy", models.TierEnterprise},
		{"uppercase keyword", "BUILD a parser", models.TierComplex},
		{"enterprise beats complex", "Build a distributed cache", models.TierEnterprise},
		{"complex beats medium", "Analyze and optimize query plans", models.TierComplex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.description); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.description, got, tt.want)
			}
		})
	}
}

func TestClassify_WordCountOverrides(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        models.ComplexityTier
	}{
		{"20 words stays simple", words(20), models.TierSimple},
		{"21 words is medium", words(21), models.TierMedium},
		{"50 words stays medium", words(50), models.TierMedium},
		{"51 words is complex", words(51), models.TierComplex},
		{"100 words stays complex", words(100), models.TierComplex},
		{"101 words is enterprise", words(101), models.TierEnterprise},
		{"long medium task raised", "analyze " + words(60), models.TierComplex},
		{"long complex task not lowered", "build " + words(25), models.TierComplex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.description); got != tt.want {
				t.Errorf("Classify(%d words) = %v, want %v", len(strings.Fields(tt.description)), got, tt.want)
			}
		})
	}
}

func TestClassifyWithDetails(t *testing.T) {
	sel := ClassifyWithDetails("Please analyze the logs")
	if sel.Tier != models.TierMedium {
		t.Errorf("Tier = %v, want medium", sel.Tier)
	}
	if sel.MatchedKeyword != "analyze" {
		t.Errorf("MatchedKeyword = %q, want analyze", sel.MatchedKeyword)
	}
	if sel.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", sel.WordCount)
	}

	sel = ClassifyWithDetails(words(101))
	if sel.Reason != "raised by task length" {
		t.Errorf("Reason = %q", sel.Reason)
	}
}

func TestClassify_Pure(t *testing.T) {
	task := "Build an enterprise platform " + words(30)
	first := ClassifyWithDetails(task)
	for i := 0; i < 5; i++ {
		if got := ClassifyWithDetails(task); got != first {
			t.Fatalf("run %d: %+v, want %+v", i, got, first)
		}
	}
}

func TestDefaultTierKeywords_Disjoint(t *testing.T) {
	seen := make(map[string]string)
	sets := map[string][]string{
		"enterprise": DefaultTierKeywords.Enterprise,
		"complex":    DefaultTierKeywords.Complex,
		"medium":     DefaultTierKeywords.Medium,
	}
	for name, set := range sets {
		for _, kw := range set {
			if other, ok := seen[kw]; ok {
				t.Errorf("keyword %q in both %s and %s", kw, other, name)
			}
			seen[kw] = name
		}
	}
}
