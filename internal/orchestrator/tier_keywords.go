// Package orchestrator classifies tasks and assembles agent teams.
package orchestrator

import (
	"strings"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// TierKeywords is the single source of truth for tier classification keywords.
// The three sets are disjoint; they are checked enterprise first, then
// complex, then medium, and the first match wins.
type TierKeywords struct {
	// Enterprise keywords indicate organization-scale or production systems.
	Enterprise []string

	// Complex keywords indicate multi-step engineering or analysis work.
	Complex []string

	// Medium keywords indicate focused work with a few moving parts.
	Medium []string

	// Simple has no keywords: it is the default tier.
}

// DefaultTierKeywords returns the authoritative keyword mappings.
var DefaultTierKeywords = TierKeywords{
	Enterprise: []string{
		"enterprise",
		"organization-wide",
		"company-wide",
		"production",
		"scalable",
		"distributed",
		"microservice",
		"compliance",
		"multi-tenant",
		"platform",
		"large-scale",
		"mission-critical",
	},

	Complex: []string{
		"develop",
		"build",
		"implement",
		"architecture",
		"integrate",
		"integration",
		"pipeline",
		"automate",
		"optimize",
		"machine learning",
		"trading bot",
		"web application",
		"authentication",
		"database",
	},

	Medium: []string{
		"analyze",
		"analysis",
		"in-depth",
		"compare",
		"evaluate",
		"investigate",
		"report",
		"visualize",
		"scrape",
		"design",
		"review",
	},
}

// Word-count thresholds that raise the tier regardless of keywords.
const (
	enterpriseWordCount = 100
	complexWordCount    = 50
	mediumWordCount     = 20
)

// TierSelection is a classification result with its justification.
type TierSelection struct {
	// Tier is the selected tier.
	Tier models.ComplexityTier
	// WordCount is the number of whitespace-separated words in the task.
	WordCount int
	// MatchedKeyword is the keyword that triggered the selection (if any).
	MatchedKeyword string
	// Reason explains why this tier was selected.
	Reason string
}

// ClassifyWithDetails selects a tier from keywords and task length.
// It is deterministic and has no side effects.
func ClassifyWithDetails(taskText string) TierSelection {
	lower := strings.ToLower(taskText)
	sel := TierSelection{
		Tier:      models.TierSimple,
		WordCount: len(strings.Fields(taskText)),
		Reason:    "no keyword match, defaulting to simple",
	}

	if kw, ok := matchKeyword(lower, DefaultTierKeywords.Enterprise); ok {
		sel.Tier, sel.MatchedKeyword, sel.Reason = models.TierEnterprise, kw, "matched enterprise keyword"
	} else if kw, ok := matchKeyword(lower, DefaultTierKeywords.Complex); ok {
		sel.Tier, sel.MatchedKeyword, sel.Reason = models.TierComplex, kw, "matched complex keyword"
	} else if kw, ok := matchKeyword(lower, DefaultTierKeywords.Medium); ok {
		sel.Tier, sel.MatchedKeyword, sel.Reason = models.TierMedium, kw, "matched medium keyword"
	}

	floor := models.TierSimple
	switch {
	case sel.WordCount > enterpriseWordCount:
		floor = models.TierEnterprise
	case sel.WordCount > complexWordCount:
		floor = models.TierComplex
	case sel.WordCount > mediumWordCount:
		floor = models.TierMedium
	}
	if floor.Rank() > sel.Tier.Rank() {
		sel.Tier = floor
		sel.Reason = "raised by task length"
	}

	return sel
}

// Classify returns just the tier for a task description.
func Classify(taskText string) models.ComplexityTier {
	return ClassifyWithDetails(taskText).Tier
}

func matchKeyword(lower string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}
