/*
Package coach orchestrates one turn of the nutrition conversation: it loads
the user's record, transcribes a voice note if one was sent, gathers food
facts and an optional meal-photo analysis into the prompt context, and asks
the language model for a reply.

Downstream failures degrade instead of aborting the turn. A failed
transcription, retrieval, image analysis or generation each turn into
explanatory reply text, so the caller still gets a response to show. Only an
unknown user or a storage failure on load surfaces as an error.
*/
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dietitian/internal/app/profile"
	"dietitian/internal/app/record"
	"dietitian/internal/app/speech"
	"dietitian/internal/pkg/logx"
)

const (
	// foodMatches is how many knowledge-base documents are folded into the
	// prompt context for each question.
	foodMatches = 3

	// historyTurns caps how many past exchanges the prompt replays.
	historyTurns = 5
)

// Generator produces the coach's replies and meal-photo analyses.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Retriever finds food facts relevant to the user's question.
type Retriever interface {
	Search(ctx context.Context, query string, k int) (string, error)
}

// Transcriber turns an uploaded voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Input is one turn of user input. Message may be empty when an image or a
// voice note carries the question instead.
type Input struct {
	UserID    string
	Message   string
	Image     []byte
	ImageMime string
	Audio     []byte
	AudioName string
}

// Coach answers user questions with the model, grounded on the user's
// profile, retrieved food facts and recent conversation history.
type Coach struct {
	store       *record.Store
	retriever   Retriever
	generator   Generator
	transcriber Transcriber
	log         zerolog.Logger
}

func New(store *record.Store, retriever Retriever, generator Generator, transcriber Transcriber) *Coach {
	return &Coach{
		store:       store,
		retriever:   retriever,
		generator:   generator,
		transcriber: transcriber,
		log:         logx.Logger().With().Str("component", "Coach").Logger(),
	}
}

// Respond runs one conversation turn and returns the reply text.
//
// A voice note is transcribed first and replaces the typed message; if the
// transcription fails the turn stops there and the error text becomes the
// reply. A meal photo is analyzed and the analysis is persisted to the
// user's record before the chat model is asked, so the analysis survives
// even when generation fails afterwards. The exchange is appended to the
// chat log only when there was user text (typed or transcribed) and
// generation succeeded.
func (c *Coach) Respond(ctx context.Context, in Input) (string, error) {
	rec, err := c.store.Load(in.UserID)
	if err != nil {
		return "", err
	}

	question := strings.TrimSpace(in.Message)

	if len(in.Audio) > 0 {
		transcript, err := c.transcriber.Transcribe(ctx, in.Audio, in.AudioName)
		if err != nil {
			c.log.Error().Err(err).Str("user_id", in.UserID).Msg("voice transcription failed")
			if errors.Is(err, speech.ErrNoSpeech) {
				return "Error: Could not understand audio", nil
			}
			return fmt.Sprintf("Error: Speech recognition failed - %v", err), nil
		}
		question = strings.TrimSpace(transcript)
	}

	foodContext, err := c.retriever.Search(ctx, question, foodMatches)
	if err != nil {
		c.log.Error().Err(err).Str("user_id", in.UserID).Msg("food retrieval failed")
		foodContext = fmt.Sprintf("Error retrieving data: %v", err)
	}

	if len(in.Image) > 0 {
		analysis := c.analyzeImage(ctx, in)
		foodContext += "\nImage Analysis: " + analysis
		rec.ImageAnalyses = append(rec.ImageAnalyses, profile.ImageAnalysis{
			Analysis:  analysis,
			Timestamp: time.Now().Format(profile.TimeLayout),
		})
		if err := c.store.Save(in.UserID, rec); err != nil {
			c.log.Error().Err(err).Str("user_id", in.UserID).Msg("failed to persist image analysis")
		}
	}

	prompt := buildPrompt(rec, foodContext, question)

	reply, err := c.generator.GenerateText(ctx, prompt)
	if err != nil {
		c.log.Error().Err(err).Str("user_id", in.UserID).Msg("reply generation failed")
		return fmt.Sprintf("Error processing request: %v", err), nil
	}
	reply = strings.TrimSpace(reply)

	if question != "" {
		if err := c.store.AppendExchange(in.UserID, question, reply); err != nil {
			c.log.Error().Err(err).Str("user_id", in.UserID).Msg("failed to record exchange")
		}
	}

	return reply, nil
}

// analyzeImage never fails the turn: analysis errors become reply-style
// text that is logged alongside real analyses.
func (c *Coach) analyzeImage(ctx context.Context, in Input) string {
	analysis, err := c.generator.AnalyzeImage(ctx, imagePrompt, in.Image, in.ImageMime)
	if err != nil {
		c.log.Error().Err(err).Str("user_id", in.UserID).Msg("image analysis failed")
		return fmt.Sprintf("Error: %v", err)
	}
	return strings.TrimSpace(analysis)
}
