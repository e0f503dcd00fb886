/*
Package profile contains the core data structures for user nutrition profiles.

This file implements the validation layer: the collect-all validator applied
to registration input and the strict re-check run immediately before any
nutrition calculation. Numeric registration fields are accepted as JSON
numbers or numeric strings; anything else is reported as an invalid-format
violation rather than silently coerced.
*/
package profile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RegistrationInput is the raw registration payload. The numeric fields are
// typed as any so a malformed value (e.g. a non-numeric string) survives
// decoding and can be reported as a validation violation.
type RegistrationInput struct {
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	Age           any    `json:"age"`
	Weight        any    `json:"weight"`
	Height        any    `json:"height"`
	Gender        string `json:"gender"`
	ActivityLevel string `json:"activityLevel"`
	Goal          string `json:"goal"`
	Surplus       any    `json:"surplus"`
}

// Validate checks the registration input and returns every violation found.
// The checks are independent of each other; an empty slice means valid.
func (in RegistrationInput) Validate() []string {
	var violations []string

	required := []struct {
		name    string
		missing bool
	}{
		{"userId", in.UserID == ""},
		{"name", in.Name == ""},
		{"age", isMissing(in.Age)},
		{"weight", isMissing(in.Weight)},
		{"height", isMissing(in.Height)},
		{"gender", in.Gender == ""},
		{"activityLevel", in.ActivityLevel == ""},
		{"goal", in.Goal == ""},
	}
	for _, f := range required {
		if f.missing {
			violations = append(violations, f.name+" is required")
		}
	}

	if !isMissing(in.Age) {
		if age, err := asInt(in.Age, "age"); err != nil {
			violations = append(violations, "Invalid data format: "+err.Error())
		} else if age < MinAge || age > MaxAge {
			violations = append(violations, "Age must be between 15 and 90 years")
		}
	}

	if !isMissing(in.Weight) {
		if weight, err := asFloat(in.Weight, "weight"); err != nil {
			violations = append(violations, "Invalid data format: "+err.Error())
		} else if weight < MinWeight || weight > MaxWeight {
			violations = append(violations, "Weight must be between 30kg and 300kg")
		}
	}

	if !isMissing(in.Height) {
		if height, err := asFloat(in.Height, "height"); err != nil {
			violations = append(violations, "Invalid data format: "+err.Error())
		} else if height < MinHeight || height > MaxHeight {
			violations = append(violations, "Height must be between 120cm and 250cm")
		}
	}

	if in.Gender != "" {
		switch strings.ToLower(in.Gender) {
		case GenderMale, GenderFemale:
		default:
			violations = append(violations, "Gender must be 'male' or 'female'")
		}
	}

	if in.ActivityLevel != "" && !ValidActivityLevel(in.ActivityLevel) {
		violations = append(violations, "Invalid activity level")
	}

	if in.Goal != "" {
		switch strings.ToLower(in.Goal) {
		case GoalLoss, GoalGain, GoalMaintenance:
		default:
			violations = append(violations, "Goal must be 'loss', 'gain', or 'maintenance'")
		}
	}

	if strings.EqualFold(in.Goal, GoalGain) && !isMissing(in.Surplus) {
		if surplus, err := asInt(in.Surplus, "surplus"); err != nil {
			violations = append(violations, "Invalid data format: "+err.Error())
		} else if surplus < MinSurplus || surplus > MaxSurplus {
			violations = append(violations, "For muscle gain, surplus must be between 300 and 500 kcal")
		}
	}

	return violations
}

// AgeValue returns the parsed age field.
func (in RegistrationInput) AgeValue() (int, error) {
	return asInt(in.Age, "age")
}

// WeightValue returns the parsed weight field.
func (in RegistrationInput) WeightValue() (float64, error) {
	return asFloat(in.Weight, "weight")
}

// HeightValue returns the parsed height field.
func (in RegistrationInput) HeightValue() (float64, error) {
	return asFloat(in.Height, "height")
}

// SurplusValue returns the parsed surplus field, or DefaultSurplus when the
// field was not supplied.
func (in RegistrationInput) SurplusValue() (int, error) {
	if isMissing(in.Surplus) {
		return DefaultSurplus, nil
	}
	return asInt(in.Surplus, "surplus")
}

// CheckInputs re-enforces the range and enum rules against already-typed
// values. It is invoked immediately before every nutrition calculation and
// returns the first violation as a descriptive error.
func CheckInputs(weight, height float64, age int, gender, activityLevel, goal string, surplus int) error {
	if weight < MinWeight || weight > MaxWeight {
		return errors.New("Weight must be between 30kg and 300kg")
	}
	if height < MinHeight || height > MaxHeight {
		return errors.New("Height must be between 120cm and 250cm")
	}
	if age < MinAge || age > MaxAge {
		return errors.New("Age must be between 15 and 90 years")
	}
	switch strings.ToLower(gender) {
	case GenderMale, GenderFemale:
	default:
		return errors.New("Gender must be 'male' or 'female'")
	}
	if !ValidActivityLevel(activityLevel) {
		return errors.New("Invalid activity level")
	}
	goalLower := strings.ToLower(goal)
	switch goalLower {
	case GoalLoss, GoalGain, GoalMaintenance:
	default:
		return errors.New("Invalid goal")
	}
	if goalLower == GoalGain && (surplus < MinSurplus || surplus > MaxSurplus) {
		return errors.New("For muscle gain, surplus must be between 300 and 500 kcal")
	}
	return nil
}

// isMissing mirrors a falsy-style presence check: nil, empty strings, zero
// numbers, and false all count as absent.
func isMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case bool:
		return !t
	}
	return false
}

// asInt parses v as an integer. JSON numbers truncate toward zero; numeric
// strings must be whole numbers.
func asInt(v any, field string) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number", field)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("%s is missing", field)
	}
	return 0, fmt.Errorf("%s must be a number", field)
}

// asFloat parses v as a float. Numeric strings are accepted.
func asFloat(v any, field string) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", field)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("%s is missing", field)
	}
	return 0, fmt.Errorf("%s must be a number", field)
}
