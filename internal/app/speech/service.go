/*
Package speech transcribes short voice notes through the Google Cloud
Speech-to-Text API. Voice messages are small enough for the synchronous
Recognize call, so no long-running operations are involved.
*/
package speech

import (
	"context"
	"errors"
)

// ErrNoSpeech reports that the recognizer produced no transcript for the
// audio, as opposed to the recognition request itself failing.
var ErrNoSpeech = errors.New("could not understand audio")

// Service turns recorded audio into text.
type Service interface {
	// Transcribe returns the transcript of the audio bytes. The filename's
	// extension selects the expected audio encoding.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)

	Close() error
}

// Config carries recognizer settings.
type Config struct {
	// LanguageCode is a BCP-47 tag; empty selects en-US.
	LanguageCode string

	// SampleRateHertz applies to raw and compressed formats that do not fix
	// their own rate; zero selects 16000.
	SampleRateHertz int
}

// Disabled is a Service that fails every transcription. It stands in when no
// Google credentials are configured, so voice messages degrade into an error
// response instead of crashing the request.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, []byte, string) (string, error) {
	return "", errors.New("speech recognition is not configured")
}

func (Disabled) Close() error {
	return nil
}
