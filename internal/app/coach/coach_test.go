package coach

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dietitian/internal/app/profile"
	"dietitian/internal/app/record"
	"dietitian/internal/app/speech"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

type stubGenerator struct {
	textReply   string
	textErr     error
	prompts     []string
	imageReply  string
	imageErr    error
	imagePrompt string
	imageBytes  []byte
	imageMime   string
}

func (g *stubGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.textErr != nil {
		return "", g.textErr
	}
	return g.textReply, nil
}

func (g *stubGenerator) AnalyzeImage(_ context.Context, prompt string, image []byte, mimeType string) (string, error) {
	g.imagePrompt = prompt
	g.imageBytes = image
	g.imageMime = mimeType
	if g.imageErr != nil {
		return "", g.imageErr
	}
	return g.imageReply, nil
}

type stubRetriever struct {
	context string
	err     error
	queries []string
}

func (r *stubRetriever) Search(_ context.Context, query string, _ int) (string, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return "", r.err
	}
	return r.context, nil
}

type stubTranscriber struct {
	transcript string
	err        error
	calls      int
}

func (t *stubTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return t.transcript, nil
}

type fixture struct {
	store       *record.Store
	coach       *Coach
	generator   *stubGenerator
	retriever   *stubRetriever
	transcriber *stubTranscriber
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := record.NewStore(t.TempDir())
	if err := store.EnsureReady(); err != nil {
		t.Fatalf("EnsureReady returned %v", err)
	}
	if _, err := store.Create("u1", "alice", record.CreateParams{
		Age:           intPtr(30),
		Weight:        floatPtr(70),
		Height:        floatPtr(175),
		Goal:          "loss",
		ActivityLevel: "moderate",
	}); err != nil {
		t.Fatalf("Create returned %v", err)
	}
	rec, err := store.Load("u1")
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	rec.Gender = "male"
	if err := store.Save("u1", rec); err != nil {
		t.Fatalf("Save returned %v", err)
	}

	g := &stubGenerator{textReply: "Eat more vegetables 🥦"}
	r := &stubRetriever{context: "Food: Apple, Calories: 52 kcal"}
	tr := &stubTranscriber{}
	return &fixture{
		store:       store,
		coach:       New(store, r, g, tr),
		generator:   g,
		retriever:   r,
		transcriber: tr,
	}
}

func (f *fixture) lastPrompt(t *testing.T) string {
	t.Helper()
	if len(f.generator.prompts) == 0 {
		t.Fatal("generator was never asked for a reply")
	}
	return f.generator.prompts[len(f.generator.prompts)-1]
}

func TestRespondTextTurn(t *testing.T) {
	f := newFixture(t)

	reply, err := f.coach.Respond(context.Background(), Input{UserID: "u1", Message: "what should I eat today?"})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Eat more vegetables 🥦" {
		t.Errorf("reply = %q", reply)
	}

	if len(f.retriever.queries) != 1 || f.retriever.queries[0] != "what should I eat today?" {
		t.Errorf("retriever queries = %v", f.retriever.queries)
	}

	prompt := f.lastPrompt(t)
	for _, want := range []string{
		"- Weight: 70 kg",
		"- Height: 175 cm",
		"- Age: 30 years",
		"- Gender: male",
		"- Activity Level: moderate",
		"Food: Apple, Calories: 52 kcal",
		"User Question: what should I eat today?",
		"Answer in a concise and helpful manner:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	chats := f.store.Exchanges("u1")
	if len(chats) != 1 {
		t.Fatalf("expected one recorded exchange, got %d", len(chats))
	}
	if chats[0].User != "what should I eat today?" || chats[0].Bot != reply {
		t.Errorf("recorded exchange = %+v", chats[0])
	}
	if chats[0].Timestamp == "" {
		t.Error("recorded exchange has no timestamp")
	}
}

func TestRespondTrimsReply(t *testing.T) {
	f := newFixture(t)
	f.generator.textReply = "  Drink more water 💧  \n"

	reply, err := f.coach.Respond(context.Background(), Input{UserID: "u1", Message: "hydration tips"})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Drink more water 💧" {
		t.Errorf("reply = %q", reply)
	}
}

func TestRespondReplaysRecentHistory(t *testing.T) {
	f := newFixture(t)
	for _, turn := range []string{"q0", "q1", "q2", "q3", "q4", "q5", "q6"} {
		if err := f.store.AppendExchange("u1", turn, "a-"+turn); err != nil {
			t.Fatalf("AppendExchange returned %v", err)
		}
	}

	if _, err := f.coach.Respond(context.Background(), Input{UserID: "u1", Message: "next"}); err != nil {
		t.Fatalf("Respond returned %v", err)
	}

	prompt := f.lastPrompt(t)
	if !strings.Contains(prompt, "User: q2\nBot: a-q2") {
		t.Errorf("prompt missing oldest replayed exchange:\n%s", prompt)
	}
	if !strings.Contains(prompt, "User: q6\nBot: a-q6") {
		t.Errorf("prompt missing newest exchange:\n%s", prompt)
	}
	if strings.Contains(prompt, "User: q1\n") || strings.Contains(prompt, "User: q0\n") {
		t.Errorf("prompt replays more than five exchanges:\n%s", prompt)
	}
}

func TestRespondUnknownUser(t *testing.T) {
	f := newFixture(t)

	reply, err := f.coach.Respond(context.Background(), Input{UserID: "ghost", Message: "hello"})
	if !errors.Is(err, record.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if reply != "" {
		t.Errorf("reply = %q, want empty", reply)
	}
	if len(f.generator.prompts) != 0 {
		t.Error("generator should not be called for an unknown user")
	}
}

func TestRespondGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.generator.textErr = errors.New("model overloaded")

	reply, err := f.coach.Respond(context.Background(), Input{UserID: "u1", Message: "hello"})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Error processing request: model overloaded" {
		t.Errorf("reply = %q", reply)
	}
	if got := f.store.Exchanges("u1"); len(got) != 0 {
		t.Errorf("failed turn must not be recorded, got %d exchanges", len(got))
	}
}

func TestRespondRetrievalFailureBecomesContext(t *testing.T) {
	f := newFixture(t)
	f.retriever.err = errors.New("knowledge base offline")

	reply, err := f.coach.Respond(context.Background(), Input{UserID: "u1", Message: "protein sources"})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Eat more vegetables 🥦" {
		t.Errorf("reply = %q", reply)
	}
	if prompt := f.lastPrompt(t); !strings.Contains(prompt, "Error retrieving data: knowledge base offline") {
		t.Errorf("prompt missing retrieval error context:\n%s", prompt)
	}
	if got := f.store.Exchanges("u1"); len(got) != 1 {
		t.Errorf("expected the turn to be recorded, got %d exchanges", len(got))
	}
}

func TestRespondVoiceReplacesMessage(t *testing.T) {
	f := newFixture(t)
	f.transcriber.transcript = "how much protein do I need"

	reply, err := f.coach.Respond(context.Background(), Input{
		UserID:    "u1",
		Audio:     []byte{1, 2, 3},
		AudioName: "note.wav",
	})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Eat more vegetables 🥦" {
		t.Errorf("reply = %q", reply)
	}

	if len(f.retriever.queries) != 1 || f.retriever.queries[0] != "how much protein do I need" {
		t.Errorf("retriever queries = %v", f.retriever.queries)
	}
	if prompt := f.lastPrompt(t); !strings.Contains(prompt, "User Question: how much protein do I need") {
		t.Errorf("prompt missing transcribed question:\n%s", prompt)
	}

	chats := f.store.Exchanges("u1")
	if len(chats) != 1 || chats[0].User != "how much protein do I need" {
		t.Errorf("recorded exchanges = %+v", chats)
	}
}

func TestRespondVoiceNotUnderstood(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = speech.ErrNoSpeech

	reply, err := f.coach.Respond(context.Background(), Input{UserID: "u1", Audio: []byte{1}, AudioName: "note.wav"})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Error: Could not understand audio" {
		t.Errorf("reply = %q", reply)
	}
	if len(f.retriever.queries) != 0 {
		t.Error("retrieval should not run after a failed transcription")
	}
	if len(f.generator.prompts) != 0 {
		t.Error("generation should not run after a failed transcription")
	}
	if got := f.store.Exchanges("u1"); len(got) != 0 {
		t.Errorf("failed voice turn must not be recorded, got %d exchanges", len(got))
	}
}

func TestRespondVoiceServiceFailure(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("rpc unavailable")

	reply, err := f.coach.Respond(context.Background(), Input{UserID: "u1", Audio: []byte{1}, AudioName: "note.ogg"})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Error: Speech recognition failed - rpc unavailable" {
		t.Errorf("reply = %q", reply)
	}
	if got := f.store.Exchanges("u1"); len(got) != 0 {
		t.Errorf("failed voice turn must not be recorded, got %d exchanges", len(got))
	}
}

func TestRespondImageAnalysisPersisted(t *testing.T) {
	f := newFixture(t)
	f.generator.imageReply = "1. Apple 🍎 ~95 kcal"
	image := []byte{0xFF, 0xD8, 0xFF}

	reply, err := f.coach.Respond(context.Background(), Input{
		UserID:    "u1",
		Message:   "how was my lunch?",
		Image:     image,
		ImageMime: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Eat more vegetables 🥦" {
		t.Errorf("reply = %q", reply)
	}

	if f.generator.imagePrompt == "" || !strings.Contains(f.generator.imagePrompt, "certified nutritionist") {
		t.Errorf("image prompt = %q", f.generator.imagePrompt)
	}
	if string(f.generator.imageBytes) != string(image) {
		t.Error("image bytes were not passed through")
	}
	if f.generator.imageMime != "image/jpeg" {
		t.Errorf("image mime = %q", f.generator.imageMime)
	}

	if prompt := f.lastPrompt(t); !strings.Contains(prompt, "\nImage Analysis: 1. Apple 🍎 ~95 kcal") {
		t.Errorf("prompt missing image analysis context:\n%s", prompt)
	}

	rec, err := f.store.Load("u1")
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if len(rec.ImageAnalyses) != 1 {
		t.Fatalf("expected one persisted analysis, got %d", len(rec.ImageAnalyses))
	}
	if rec.ImageAnalyses[0].Analysis != "1. Apple 🍎 ~95 kcal" {
		t.Errorf("persisted analysis = %q", rec.ImageAnalyses[0].Analysis)
	}
	if _, err := time.Parse(profile.TimeLayout, rec.ImageAnalyses[0].Timestamp); err != nil {
		t.Errorf("analysis timestamp %q does not parse: %v", rec.ImageAnalyses[0].Timestamp, err)
	}
}

func TestRespondImageAnalysisSurvivesGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.generator.imageReply = "Salad bowl, ~350 kcal"
	f.generator.textErr = errors.New("model overloaded")

	reply, err := f.coach.Respond(context.Background(), Input{
		UserID:  "u1",
		Message: "rate my dinner",
		Image:   []byte{1, 2},
	})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Error processing request: model overloaded" {
		t.Errorf("reply = %q", reply)
	}

	rec, err := f.store.Load("u1")
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if len(rec.ImageAnalyses) != 1 {
		t.Errorf("analysis must be persisted before generation, got %d", len(rec.ImageAnalyses))
	}
	if got := f.store.Exchanges("u1"); len(got) != 0 {
		t.Errorf("failed turn must not be recorded, got %d exchanges", len(got))
	}
}

func TestRespondImageFailureBecomesContext(t *testing.T) {
	f := newFixture(t)
	f.generator.imageErr = errors.New("unsupported image")

	if _, err := f.coach.Respond(context.Background(), Input{
		UserID:  "u1",
		Message: "thoughts?",
		Image:   []byte{1},
	}); err != nil {
		t.Fatalf("Respond returned %v", err)
	}

	if prompt := f.lastPrompt(t); !strings.Contains(prompt, "Image Analysis: Error: unsupported image") {
		t.Errorf("prompt missing analysis error context:\n%s", prompt)
	}

	rec, err := f.store.Load("u1")
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if len(rec.ImageAnalyses) != 1 || rec.ImageAnalyses[0].Analysis != "Error: unsupported image" {
		t.Errorf("persisted analyses = %+v", rec.ImageAnalyses)
	}
}

func TestRespondImageOnlyTurnIsNotRecorded(t *testing.T) {
	f := newFixture(t)
	f.generator.imageReply = "Oatmeal with berries, ~280 kcal"

	reply, err := f.coach.Respond(context.Background(), Input{UserID: "u1", Image: []byte{9}})
	if err != nil {
		t.Fatalf("Respond returned %v", err)
	}
	if reply != "Eat more vegetables 🥦" {
		t.Errorf("reply = %q", reply)
	}

	if got := f.store.Exchanges("u1"); len(got) != 0 {
		t.Errorf("image-only turn must not be recorded, got %d exchanges", len(got))
	}
	rec, err := f.store.Load("u1")
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if len(rec.ImageAnalyses) != 1 {
		t.Errorf("expected one persisted analysis, got %d", len(rec.ImageAnalyses))
	}
}
