package nutrition

import (
	"math"

	"dietitian/internal/app/profile"
	"dietitian/internal/app/record"
)

// MissingDataMessage is returned when a record lacks any biometric the
// pipeline needs.
const MissingDataMessage = "Please provide all required data (weight, height, age, gender, activity level, goal)"

// CalcError reports that a plan could not be computed from the record's
// stored data: a required field is missing or a value is out of range. It is
// distinguishable from storage failures and unknown-user lookups so callers
// can map it to a client error.
type CalcError struct {
	msg string
}

func (e *CalcError) Error() string {
	return e.msg
}

// PlanFor computes a nutrition plan purely from the record's stored fields
// without touching storage. Missing or zero-valued required fields yield a
// *CalcError with MissingDataMessage; out-of-range values yield a *CalcError
// carrying the specific violation.
func PlanFor(rec *profile.Record) (*profile.Plan, error) {
	if rec == nil ||
		rec.Weight == nil || *rec.Weight == 0 ||
		rec.Height == nil || *rec.Height == 0 ||
		rec.Age == nil || *rec.Age == 0 ||
		rec.Gender == "" || rec.ActivityLevel == "" || rec.Goal == "" {
		return nil, &CalcError{msg: MissingDataMessage}
	}

	weight, height, age := *rec.Weight, *rec.Height, *rec.Age
	surplus := rec.SurplusOrDefault()

	if err := profile.CheckInputs(weight, height, age, rec.Gender, rec.ActivityLevel, rec.Goal, surplus); err != nil {
		return nil, &CalcError{msg: err.Error()}
	}

	bmr, err := BMR(weight, height, age, rec.Gender)
	if err != nil {
		return nil, &CalcError{msg: err.Error()}
	}
	tdee, err := TDEE(bmr, rec.ActivityLevel)
	if err != nil {
		return nil, &CalcError{msg: err.Error()}
	}
	goalCalories, err := GoalCalories(tdee, rec.Goal, surplus)
	if err != nil {
		return nil, &CalcError{msg: err.Error()}
	}

	// Macro grams come from the unrounded calorie target; only the displayed
	// totals are rounded.
	return &profile.Plan{
		BMR:          int(math.Round(bmr)),
		TDEE:         int(math.Round(tdee)),
		GoalCalories: int(math.Round(goalCalories)),
		Goal:         capitalize(rec.Goal),
		Macros:       MacroSplit(goalCalories, rec.Goal),
	}, nil
}

// Calculator recomputes nutrition plans from stored records and persists the
// result back onto the record.
type Calculator struct {
	store *record.Store
}

// NewCalculator returns a Calculator backed by the given record store.
func NewCalculator(store *record.Store) *Calculator {
	return &Calculator{store: store}
}

// CalculateAndPersist loads the user's record, recomputes the plan from its
// stored biometrics, overwrites the record's nutrition field, and saves the
// record. The returned error is record.ErrNotFound for unknown users, a
// *CalcError for missing or invalid data, or a storage error otherwise.
func (c *Calculator) CalculateAndPersist(userID string) (*profile.Plan, error) {
	rec, err := c.store.Load(userID)
	if err != nil {
		return nil, err
	}

	plan, err := PlanFor(rec)
	if err != nil {
		return nil, err
	}

	rec.Nutrition = plan
	if err := c.store.Save(userID, rec); err != nil {
		return nil, err
	}
	return plan, nil
}
