package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"dietitian/internal/app/coach"
	"dietitian/internal/app/nutrition"
	"dietitian/internal/app/record"
	"dietitian/internal/configs"
)

// stubCoach records every turn it is asked to run and replies with canned
// text so handler tests never reach a real model.
type stubCoach struct {
	reply string
	err   error
	calls []coach.Input
}

func (c *stubCoach) Respond(_ context.Context, in coach.Input) (string, error) {
	c.calls = append(c.calls, in)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type fixture struct {
	deps   *AppDeps
	router http.Handler
	coach  *stubCoach
	store  *record.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := record.NewStore(t.TempDir())
	if err := store.EnsureReady(); err != nil {
		t.Fatalf("EnsureReady returned %v", err)
	}

	sc := &stubCoach{reply: "hello!"}
	deps := &AppDeps{
		Config: &configs.AppConfig{
			Environment:    "development",
			Port:           8080,
			AllowedOrigins: []string{},
		},
		Store: store,
		Calc:  nutrition.NewCalculator(store),
		Coach: sc,
	}

	return &fixture{
		deps:   deps,
		router: Router(deps),
		coach:  sc,
		store:  store,
	}
}

// envelope mirrors resp.JSONResponse for decoding test responses.
type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Errors  []string       `json:"errors"`
	Data    map[string]any `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return env
}

func (f *fixture) doJSON(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr, decodeEnvelope(t, rr)
}

func doRaw(t *testing.T, f *fixture, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

// filePart describes one file in a multipart chat request.
type filePart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func (f *fixture) doMultipart(t *testing.T, fields map[string]string, files []filePart) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write form field: %v", err)
		}
	}
	for _, file := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		if file.contentType != "" {
			hdr.Set("Content-Type", file.contentType)
		}
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create form part: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("write form part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr, decodeEnvelope(t, rr)
}

// validRegistration is a female weight-loss profile: BMR 1483, TDEE 2298,
// goal calories 1798.
func validRegistration() map[string]any {
	return map[string]any{
		"userId":        "alice01",
		"name":          "Alice",
		"age":           30,
		"weight":        70,
		"height":        175,
		"gender":        "Female",
		"activityLevel": "moderate",
		"goal":          "loss",
	}
}

func (f *fixture) registerUser(t *testing.T, body map[string]any) {
	t.Helper()
	rr, env := f.doJSON(t, http.MethodPost, "/api/register", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("registration failed with status %d: %+v", rr.Code, env)
	}
}
