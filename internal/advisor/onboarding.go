package advisor

import (
	"fmt"
	"strings"

	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
)

// BrandAny is the sentinel brand choice that excludes every specific brand.
const BrandAny = "any"

// Option is one selectable onboarding answer.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// BudgetOptions are the single-choice budget buckets offered first.
var BudgetOptions = []Option{
	{ID: "under_20k", Label: "Under ₹20,000"},
	{ID: "20k_40k", Label: "₹20,000 – ₹40,000"},
	{ID: "40k_60k", Label: "₹40,000 – ₹60,000"},
	{ID: "above_60k", Label: "Above ₹60,000"},
}

// PriorityOptions are the multi-choice feature priorities.
var PriorityOptions = []Option{
	{ID: "camera", Label: "Camera"},
	{ID: "battery", Label: "Battery life"},
	{ID: "performance", Label: "Performance"},
	{ID: "display", Label: "Display"},
	{ID: "design", Label: "Design"},
}

// BrandOptions are the multi-choice brand preferences, including the
// exclusive "any" sentinel.
var BrandOptions = []Option{
	{ID: "apple", Label: "Apple"},
	{ID: "samsung", Label: "Samsung"},
	{ID: "google", Label: "Google"},
	{ID: "oneplus", Label: "OnePlus"},
	{ID: BrandAny, Label: "Any brand"},
}

const (
	budgetPrompt   = "Hi! I can help you pick phones to try at home. First, what's your budget?"
	priorityPrompt = "Got it. What matters most to you in a phone? Pick as many as you like."
	brandPrompt    = "Almost there. Any brands you prefer?"
	donePrompt     = "Great, let me pull together some phones worth trying."
)

// SelectBudget records the single budget choice and advances to priorities.
func (s *Session) SelectBudget(optionID string) error {
	if s.Step != enums.OnboardingStepBudget {
		return stepMismatch(s.Step, enums.OnboardingStepBudget)
	}
	option, ok := findOption(BudgetOptions, optionID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown budget option")
	}

	s.Budget = option.ID
	s.appendTransition(option.Label, priorityPrompt)
	s.Step = s.Step.Next()
	return nil
}

// TogglePriority flips one priority tag while on the priority step.
func (s *Session) TogglePriority(optionID string) error {
	if s.Step != enums.OnboardingStepPriority {
		return stepMismatch(s.Step, enums.OnboardingStepPriority)
	}
	if _, ok := findOption(PriorityOptions, optionID); !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown priority option")
	}
	s.Priorities = toggle(s.Priorities, optionID)
	return nil
}

// ConfirmPriorities advances to the brand step. Confirming with nothing
// selected is a no-op: no transition and no synthetic messages.
func (s *Session) ConfirmPriorities() (bool, error) {
	if s.Step != enums.OnboardingStepPriority {
		return false, stepMismatch(s.Step, enums.OnboardingStepPriority)
	}
	if len(s.Priorities) == 0 {
		return false, nil
	}

	s.appendTransition(labelList(PriorityOptions, s.Priorities), brandPrompt)
	s.Step = s.Step.Next()
	return true, nil
}

// ToggleBrand flips one brand tag while on the brand step. Selecting "any"
// clears every specific brand; selecting a specific brand clears "any".
func (s *Session) ToggleBrand(optionID string) error {
	if s.Step != enums.OnboardingStepBrand {
		return stepMismatch(s.Step, enums.OnboardingStepBrand)
	}
	if _, ok := findOption(BrandOptions, optionID); !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown brand option")
	}

	if optionID == BrandAny {
		if containsString(s.Brands, BrandAny) {
			s.Brands = nil
		} else {
			s.Brands = []string{BrandAny}
		}
		return nil
	}

	s.Brands = remove(s.Brands, BrandAny)
	s.Brands = toggle(s.Brands, optionID)
	return nil
}

// ConfirmBrands completes onboarding. Confirming with nothing selected is a
// no-op, mirroring ConfirmPriorities.
func (s *Session) ConfirmBrands() (bool, error) {
	if s.Step != enums.OnboardingStepBrand {
		return false, stepMismatch(s.Step, enums.OnboardingStepBrand)
	}
	if len(s.Brands) == 0 {
		return false, nil
	}

	s.appendTransition(labelList(BrandOptions, s.Brands), donePrompt)
	s.Step = s.Step.Next()
	return true, nil
}

// IntakeSummary renders the completed onboarding answers as the single
// structured request sent to the advisor once the session reaches done.
func (s *Session) IntakeSummary() string {
	budgetLabel := s.Budget
	if option, ok := findOption(BudgetOptions, s.Budget); ok {
		budgetLabel = option.Label
	}
	return fmt.Sprintf(
		"I'm looking for phones to try at home. Budget: %s. Priorities: %s. Preferred brands: %s. Please recommend phones from the catalogue.",
		budgetLabel,
		labelList(PriorityOptions, s.Priorities),
		labelList(BrandOptions, s.Brands),
	)
}

func stepMismatch(current, expected enums.OnboardingStep) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "onboarding step mismatch").
		WithDetails(map[string]string{
			"current":  current.String(),
			"expected": expected.String(),
		})
}

func findOption(options []Option, id string) (Option, bool) {
	for _, option := range options {
		if option.ID == id {
			return option, true
		}
	}
	return Option{}, false
}

func labelList(options []Option, ids []string) string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if option, ok := findOption(options, id); ok {
			labels = append(labels, option.Label)
		}
	}
	return strings.Join(labels, ", ")
}

func toggle(values []string, value string) []string {
	if containsString(values, value) {
		return remove(values, value)
	}
	return append(values, value)
}

func remove(values []string, value string) []string {
	out := values[:0]
	for _, candidate := range values {
		if candidate != value {
			out = append(out, candidate)
		}
	}
	return out
}

func containsString(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
