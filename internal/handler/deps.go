package handler

import (
	"context"

	"dietitian/internal/app/coach"
	"dietitian/internal/app/nutrition"
	"dietitian/internal/app/record"
	"dietitian/internal/configs"
)

// ChatResponder runs one conversation turn for a registered user.
// *coach.Coach is the production implementation.
type ChatResponder interface {
	Respond(ctx context.Context, in coach.Input) (string, error)
}

// AppDeps bundles the services the HTTP handlers depend on.
type AppDeps struct {
	Config *configs.AppConfig
	Store  *record.Store
	Calc   *nutrition.Calculator
	Coach  ChatResponder
}
