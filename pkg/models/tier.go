package models

// ComplexityTier is the coarse complexity bucket a task is classified into.
// It drives team size and whether coordination agents are added.
type ComplexityTier string

const (
	// TierSimple is for short, single-focus tasks.
	TierSimple ComplexityTier = "simple"
	// TierMedium is for tasks with a few moving parts.
	TierMedium ComplexityTier = "medium"
	// TierComplex is for multi-step work that needs several specialists.
	TierComplex ComplexityTier = "complex"
	// TierEnterprise is for large, cross-cutting efforts that need coordination.
	TierEnterprise ComplexityTier = "enterprise"
)

// AllTiers lists the tiers from lowest to highest.
var AllTiers = []ComplexityTier{TierSimple, TierMedium, TierComplex, TierEnterprise}

// Valid returns true if the tier is a known value.
func (t ComplexityTier) Valid() bool {
	switch t {
	case TierSimple, TierMedium, TierComplex, TierEnterprise:
		return true
	default:
		return false
	}
}

// Rank orders tiers from 0 (simple) to 3 (enterprise). Unknown tiers rank -1.
func (t ComplexityTier) Rank() int {
	switch t {
	case TierSimple:
		return 0
	case TierMedium:
		return 1
	case TierComplex:
		return 2
	case TierEnterprise:
		return 3
	default:
		return -1
	}
}

func (t ComplexityTier) String() string {
	return string(t)
}

// MaxTier returns whichever of a and b ranks higher.
func MaxTier(a, b ComplexityTier) ComplexityTier {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// AccountType selects the provider rate-limit profile.
type AccountType string

const (
	AccountPaid AccountType = "paid"
	AccountFree AccountType = "free"
)

// Valid returns true if the account type is a known value.
func (a AccountType) Valid() bool {
	return a == AccountPaid || a == AccountFree
}
