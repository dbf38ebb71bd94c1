package models

import "testing"

func TestImpliesExecution(t *testing.T) {
	tests := []struct {
		name string
		caps []string
		want bool
	}{
		{"coding", []string{"research", "coding"}, true},
		{"mixed case", []string{"Programming"}, true},
		{"padded", []string{" scripting "}, true},
		{"development", []string{"development"}, true},
		{"no coding", []string{"research", "writing"}, false},
		{"substring does not count", []string{"decoding theory"}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImpliesExecution(tt.caps); got != tt.want {
				t.Errorf("ImpliesExecution(%v) = %v, want %v", tt.caps, got, tt.want)
			}
		})
	}
}

func TestAgentSpec_Kind(t *testing.T) {
	if got := (AgentSpec{NeedsExecution: true}).Kind(); got != AgentKindExecution {
		t.Errorf("Kind() = %s, want execution", got)
	}
	if got := (AgentSpec{}).Kind(); got != AgentKindDialogue {
		t.Errorf("Kind() = %s, want dialogue", got)
	}
}
