/*
Package profile contains the core data structures for user nutrition profiles.

It defines the persisted user record (biometrics, computed nutrition plan,
chat history, image analyses) together with the enum domains and range limits
shared by the validation layer and the nutrition calculator.
*/
package profile

import "time"

// TimeLayout is the human-readable timestamp format used across records,
// chat exchanges, and image analyses.
const TimeLayout = "2006-01-02 15:04:05"

// Gender values accepted by the profile (compared case-insensitively).
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Goal values accepted by the profile (compared case-insensitively, stored lowercase).
const (
	GoalLoss        = "loss"
	GoalGain        = "gain"
	GoalMaintenance = "maintenance"
)

// Range limits enforced on biometric inputs.
const (
	MinAge    = 15
	MaxAge    = 90
	MinWeight = 30.0
	MaxWeight = 300.0
	MinHeight = 120.0
	MaxHeight = 250.0

	// Surplus bounds apply to the daily calorie surplus for the gain goal.
	MinSurplus     = 300
	MaxSurplus     = 500
	DefaultSurplus = 400
)

// ActivityLevels is the exact (case-sensitive) set of accepted activity levels.
var ActivityLevels = []string{"sedentary", "light", "moderate", "very_active", "extra_active"}

// ValidActivityLevel reports whether level is one of the accepted activity levels.
func ValidActivityLevel(level string) bool {
	for _, l := range ActivityLevels {
		if level == l {
			return true
		}
	}
	return false
}

// Record is the persisted profile of a registered user. JSON field names are
// part of the on-disk format and must not change.
type Record struct {

	// UserID is the globally unique identifier, immutable after creation.
	UserID string `json:"user_id"`

	// Name is the display name; it only influences the storage filename and
	// is mutable via the store's Rename operation.
	Name string `json:"name"`

	// Age in years; nil until provided.
	Age *int `json:"age"`

	// Weight in kilograms; nil until provided.
	Weight *float64 `json:"weight"`

	// Height in centimeters; nil until provided.
	Height *float64 `json:"height"`

	// Goal is one of loss, gain, or maintenance (stored lowercase).
	Goal string `json:"goal,omitempty"`

	// ActivityLevel is one of the ActivityLevels values.
	ActivityLevel string `json:"activity_level,omitempty"`

	// Gender is set during registration, after the record file exists.
	Gender string `json:"gender,omitempty"`

	// Surplus is the daily calorie surplus used for the gain goal.
	Surplus *int `json:"surplus,omitempty"`

	// CreatedAt is set once at creation time and never mutated.
	CreatedAt string `json:"created_at"`

	// Language is the conversation language tag, "en" at creation.
	Language string `json:"language"`

	// Chats is the append-only chronological list of exchanges.
	Chats []Exchange `json:"chats"`

	// Nutrition holds the last computed plan; absent until first calculation,
	// fully replaced on each recalculation.
	Nutrition *Plan `json:"nutrition,omitempty"`

	// ImageAnalyses is the append-only list of food-image analysis results.
	ImageAnalyses []ImageAnalysis `json:"image_analyses,omitempty"`
}

// Exchange is a single user/bot message pair, immutable once appended.
type Exchange struct {
	User      string `json:"user"`
	Bot       string `json:"bot"`
	Timestamp string `json:"timestamp"`
}

// ImageAnalysis is a persisted food-image analysis result.
type ImageAnalysis struct {
	Analysis  string `json:"analysis"`
	Timestamp string `json:"timestamp"`
}

// Plan is the derived nutrition result. The JSON keys (including the spaced
// "Goal Calories" key) mirror the wire format consumed by existing clients.
type Plan struct {

	// BMR is the Basal Metabolic Rate in kcal/day, rounded.
	BMR int `json:"BMR"`

	// TDEE is the Total Daily Energy Expenditure in kcal/day, rounded.
	TDEE int `json:"TDEE"`

	// GoalCalories is the goal-adjusted daily calorie target, rounded.
	GoalCalories int `json:"Goal Calories"`

	// Goal is the capitalized goal string, e.g. "Loss".
	Goal string `json:"Goal"`

	// Macros holds the macro gram targets derived from GoalCalories.
	Macros Macros `json:"Macros"`
}

// Macros is the macro split in grams per day.
type Macros struct {
	ProteinG int `json:"protein_g"`
	CarbsG   int `json:"carbs_g"`
	FatG     int `json:"fat_g"`
}

// NewRecord builds a fresh record for userID with the creation timestamp set
// and an empty chat log. Optional biometric fields stay unset.
func NewRecord(userID, name string) *Record {
	return &Record{
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().Format(TimeLayout),
		Language:  "en",
		Chats:     []Exchange{},
	}
}

// SurplusOrDefault returns the record's surplus, falling back to
// DefaultSurplus when none was stored.
func (r *Record) SurplusOrDefault() int {
	if r.Surplus == nil {
		return DefaultSurplus
	}
	return *r.Surplus
}
