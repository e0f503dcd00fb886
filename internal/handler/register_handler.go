/*
Package handler provides HTTP handler functions for registration, chat, and
profile endpoints.
*/
package handler

import (
	"errors"
	"net/http"
	"strings"

	"dietitian/internal/app/nutrition"
	"dietitian/internal/app/profile"
	"dietitian/internal/app/record"
	"dietitian/internal/pkg/errs"
	"dietitian/internal/pkg/logx"
	"dietitian/internal/pkg/req"
	"dietitian/internal/pkg/resp"
)

// HandleRegister processes the request to create a new user profile. Every
// validation violation is collected and reported in one response. On success
// the record is written and the initial nutrition plan is computed, persisted,
// and returned.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input profile.RegistrationInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		logx.Info("registration attempt", "user_id", input.UserID)

		if violations := input.Validate(); len(violations) > 0 {
			resp.RespondError(w, r, errs.NewValidationError(violations))
			return
		}

		userID := strings.TrimSpace(input.UserID)

		if _, err := deps.Store.Load(userID); err == nil {
			logx.Warn("registration conflict: user already exists", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists, userID))
			return
		} else if !errors.Is(err, record.ErrNotFound) {
			logx.Error(err, "registration: existing-user check failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrRecordStorage))
			return
		}

		// Validate already proved these fields parse.
		age, ageErr := input.AgeValue()
		weight, weightErr := input.WeightValue()
		height, heightErr := input.HeightValue()
		surplus, surplusErr := input.SurplusValue()
		if ageErr != nil || weightErr != nil || heightErr != nil || surplusErr != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrProfileCreateFailed))
			return
		}

		goal := strings.ToLower(input.Goal)

		if _, err := deps.Store.Create(userID, input.Name, record.CreateParams{
			Age:           &age,
			Weight:        &weight,
			Height:        &height,
			Goal:          goal,
			ActivityLevel: input.ActivityLevel,
		}); err != nil {
			logx.Error(err, "registration: record creation failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrProfileCreateFailed))
			return
		}

		rec, err := deps.Store.Load(userID)
		if err != nil {
			logx.Error(err, "registration: reloading created record failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrProfileCreateFailed))
			return
		}

		rec.Gender = strings.ToLower(input.Gender)
		surplusValue := profile.DefaultSurplus
		if goal == profile.GoalGain {
			surplusValue = surplus
		}
		rec.Surplus = &surplusValue

		if err := deps.Store.Save(userID, rec); err != nil {
			logx.Error(err, "registration: saving profile details failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrProfileCreateFailed))
			return
		}

		plan, err := deps.Calc.CalculateAndPersist(userID)
		if err != nil {
			logx.Error(err, "registration: nutrition calculation failed", "user_id", userID)
			var calcErr *nutrition.CalcError
			if errors.As(err, &calcErr) {
				resp.RespondError(w, r, errs.NewError(errs.ErrNutritionData, calcErr.Error()))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrRecordStorage))
			return
		}

		logx.Info("user registered", "user_id", userID)

		resp.RespondSuccess(w, r, map[string]any{
			"user_id":   userID,
			"nutrition": plan,
		})
	}
}
