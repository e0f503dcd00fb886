/*
Package nutrition implements the deterministic nutrition-target pipeline:
BMR → TDEE → goal calories → macro split.

The arithmetic lives in pure functions operating on float64; rounding to
display integers happens only when a plan is assembled. Persistence is a
separate explicit step owned by the Calculator.
*/
package nutrition

import (
	"errors"
	"math"
	"strings"

	"dietitian/internal/app/profile"
)

// activityFactors maps each accepted activity level to its TDEE multiplier.
var activityFactors = map[string]float64{
	"sedentary":    1.2,
	"light":        1.375,
	"moderate":     1.55,
	"very_active":  1.725,
	"extra_active": 1.9,
}

// BMR computes the Basal Metabolic Rate (Mifflin-St Jeor):
// male   10w + 6.25h − 5a + 5
// female 10w + 6.25h − 5a − 161
func BMR(weightKg, heightCm float64, ageYears int, gender string) (float64, error) {
	switch strings.ToLower(gender) {
	case profile.GenderMale:
		return 10*weightKg + 6.25*heightCm - 5*float64(ageYears) + 5, nil
	case profile.GenderFemale:
		return 10*weightKg + 6.25*heightCm - 5*float64(ageYears) - 161, nil
	}
	return 0, errors.New("Gender must be 'male' or 'female'")
}

// TDEE scales bmr by the activity factor for the given level.
func TDEE(bmr float64, activityLevel string) (float64, error) {
	factor, ok := activityFactors[activityLevel]
	if !ok {
		return 0, errors.New("Invalid activity level")
	}
	return bmr * factor, nil
}

// GoalCalories adjusts tdee for the goal: loss subtracts a fixed 500 kcal,
// gain adds the surplus (re-validated against its bounds), maintenance keeps
// tdee unchanged.
func GoalCalories(tdee float64, goal string, surplus int) (float64, error) {
	switch strings.ToLower(goal) {
	case profile.GoalLoss:
		return tdee - 500, nil
	case profile.GoalGain:
		if surplus < profile.MinSurplus || surplus > profile.MaxSurplus {
			return 0, errors.New("For muscle gain, surplus must be between 300 and 500 kcal")
		}
		return tdee + float64(surplus), nil
	case profile.GoalMaintenance:
		return tdee, nil
	}
	return 0, errors.New("Goal must be 'loss', 'gain', or 'maintenance'")
}

// MacroSplit allocates totalCalories across protein/carbs/fat by goal:
// loss 40/30/30, gain 35/40/25, anything else 30/40/30. Grams divide by 4
// kcal/g for protein and carbs and 9 kcal/g for fat, each rounded to the
// nearest integer independently.
func MacroSplit(totalCalories float64, goal string) profile.Macros {
	var protein, carbs, fat float64
	switch strings.ToLower(goal) {
	case profile.GoalLoss:
		protein, carbs, fat = 0.40, 0.30, 0.30
	case profile.GoalGain:
		protein, carbs, fat = 0.35, 0.40, 0.25
	default:
		protein, carbs, fat = 0.30, 0.40, 0.30
	}

	return profile.Macros{
		ProteinG: int(math.Round(totalCalories * protein / 4)),
		CarbsG:   int(math.Round(totalCalories * carbs / 4)),
		FatG:     int(math.Round(totalCalories * fat / 9)),
	}
}

// capitalize lowercases the goal and uppercases its first letter, e.g.
// "loss" becomes "Loss" in the assembled plan.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
