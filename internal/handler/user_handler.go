package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dietitian/internal/app/nutrition"
	"dietitian/internal/app/profile"
	"dietitian/internal/app/record"
	"dietitian/internal/pkg/errs"
	"dietitian/internal/pkg/logx"
	"dietitian/internal/pkg/resp"
)

// recentChats is how many trailing exchanges the user endpoint returns.
const recentChats = 10

// HandleGetUser returns the user's public profile fields and recent chat
// history. Biometrics (age, weight, height, gender) stay server-side.
func HandleGetUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		rec, err := deps.Store.Load(userID)
		if err != nil {
			if errors.Is(err, record.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "get_user: loading record failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrRecordStorage))
			return
		}

		// Clients expect an object for nutrition and an array for chats even
		// before the first calculation or exchange.
		var nutritionData any = map[string]any{}
		if rec.Nutrition != nil {
			nutritionData = rec.Nutrition
		}
		chats := deps.Store.RecentExchanges(userID, recentChats)
		if chats == nil {
			chats = []profile.Exchange{}
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": map[string]any{
				"user_id":        rec.UserID,
				"name":           rec.Name,
				"created_at":     rec.CreatedAt,
				"nutrition":      nutritionData,
				"goal":           rec.Goal,
				"activity_level": rec.ActivityLevel,
			},
			"chats": chats,
		})
	}
}

// HandleGetNutrition recomputes the user's nutrition plan from the stored
// profile, persists it, and returns it.
func HandleGetNutrition(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		plan, err := deps.Calc.CalculateAndPersist(userID)
		if err != nil {
			var calcErr *nutrition.CalcError
			switch {
			case errors.Is(err, record.ErrNotFound):
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			case errors.As(err, &calcErr):
				resp.RespondError(w, r, errs.NewError(errs.ErrNutritionData, calcErr.Error()))
			default:
				logx.Error(err, "get_nutrition: calculation failed", "user_id", userID)
				resp.RespondError(w, r, errs.NewError(errs.ErrRecordStorage))
			}
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"nutrition": plan,
		})
	}
}
