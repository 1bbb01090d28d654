package enums

import "fmt"

// MessageRole identifies the author of a chat turn.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

var validMessageRoles = []MessageRole{
	MessageRoleUser,
	MessageRoleAssistant,
	MessageRoleSystem,
}

// String implements fmt.Stringer.
func (r MessageRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known MessageRole.
func (r MessageRole) IsValid() bool {
	for _, candidate := range validMessageRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// OnboardingStep is the strictly forward-progressing advisor intake state.
type OnboardingStep string

const (
	OnboardingStepBudget   OnboardingStep = "budget"
	OnboardingStepPriority OnboardingStep = "priority"
	OnboardingStepBrand    OnboardingStep = "brand"
	OnboardingStepDone     OnboardingStep = "done"
)

var onboardingOrder = []OnboardingStep{
	OnboardingStepBudget,
	OnboardingStepPriority,
	OnboardingStepBrand,
	OnboardingStepDone,
}

// String implements fmt.Stringer.
func (s OnboardingStep) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OnboardingStep.
func (s OnboardingStep) IsValid() bool {
	for _, candidate := range onboardingOrder {
		if candidate == s {
			return true
		}
	}
	return false
}

// Next returns the step that follows s. done is terminal and returns itself.
func (s OnboardingStep) Next() OnboardingStep {
	for i, candidate := range onboardingOrder {
		if candidate == s && i+1 < len(onboardingOrder) {
			return onboardingOrder[i+1]
		}
	}
	return OnboardingStepDone
}

// ParseOnboardingStep converts raw input into an OnboardingStep.
func ParseOnboardingStep(value string) (OnboardingStep, error) {
	for _, candidate := range onboardingOrder {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid onboarding step %q", value)
}
