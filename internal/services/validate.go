package services

import (
	"github.com/localrally/petitiond/internal/types"
)

const (
	maxTitleLen       = 128
	maxDescriptionLen = 1024
	maxMessageLen     = 512
	maxTiers          = 3
	minTiers          = 1
)

// TierSpec is the content of one support tier as submitted by a caller.
type TierSpec struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
}

func validateTitle(title string) error {
	if len(title) < 1 || len(title) > maxTitleLen {
		return types.NewError(types.InvalidRequest, "title must be between 1 and %d characters", maxTitleLen)
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) < 1 || len(description) > maxDescriptionLen {
		return types.NewError(types.InvalidRequest, "description must be between 1 and %d characters", maxDescriptionLen)
	}
	return nil
}

func validateCost(cost float64) error {
	if cost < 0 {
		return types.NewError(types.InvalidRequest, "cost must be a non-negative number")
	}
	return nil
}

func validateMessage(message string) error {
	if len(message) < 1 || len(message) > maxMessageLen {
		return types.NewError(types.InvalidRequest, "message must be between 1 and %d characters", maxMessageLen)
	}
	return nil
}

// validateTierSet checks a full tier submission: count bounds, per-tier
// field rules and intra-set title uniqueness.
func validateTierSet(specs []TierSpec) error {
	if len(specs) < minTiers || len(specs) > maxTiers {
		return types.NewError(types.InvalidRequest, "a petition must have between %d and %d support tiers", minTiers, maxTiers)
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if err := validateTierSpec(spec); err != nil {
			return err
		}
		if _, dup := seen[spec.Title]; dup {
			return types.NewError(types.InvalidRequest, "support tier titles must be unique within a petition")
		}
		seen[spec.Title] = struct{}{}
	}
	return nil
}

func validateTierSpec(spec TierSpec) error {
	if err := validateTitle(spec.Title); err != nil {
		return err
	}
	if err := validateDescription(spec.Description); err != nil {
		return err
	}
	return validateCost(spec.Cost)
}
