package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dietitian/internal/pkg/logx"
)

const (
	defaultLanguageCode = "en-US"
	defaultSampleRate   = 16000

	// opusSampleRate is fixed by the Opus codec used in ogg and webm
	// containers.
	opusSampleRate = 48000

	transcribeTimeout = time.Minute
	maxRetries        = 4
)

type googleService struct {
	client       *speech.Client
	languageCode string
	sampleRate   int
	maxRetries   int
	log          zerolog.Logger
}

// NewGoogleService builds the Speech-to-Text backed Service. Credentials
// come from GOOGLE_APPLICATION_CREDENTIALS_JSON, GOOGLE_APPLICATION_CREDENTIALS,
// or ambient application default credentials.
func NewGoogleService(ctx context.Context, cfg Config) (Service, error) {
	client, err := speech.NewClient(ctx, clientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	languageCode := cfg.LanguageCode
	if languageCode == "" {
		languageCode = defaultLanguageCode
	}
	sampleRate := cfg.SampleRateHertz
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	return &googleService{
		client:       client,
		languageCode: languageCode,
		sampleRate:   sampleRate,
		maxRetries:   maxRetries,
		log:          logx.Logger().With().Str("component", "Speech").Logger(),
	}, nil
}

func (s *googleService) Close() error {
	return s.client.Close()
}

func (s *googleService) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoSpeech
	}

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	encoding, sampleRate := s.recognitionFormat(filename)
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encoding,
			SampleRateHertz:            int32(sampleRate),
			LanguageCode:               s.languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := s.recognizeWithRetry(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}

	text := joinTranscripts(resp)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (s *googleService) recognizeWithRetry(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	backoff := 750 * time.Millisecond
	var last error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, err := s.client.Recognize(ctx, req)
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == s.maxRetries {
			break
		}

		s.log.Warn().Int("attempt", attempt+1).Err(err).Msg("Speech request retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}

// recognitionFormat maps the upload's extension to the encoding and sample
// rate the recognizer should assume. Opus containers fix their own rate;
// everything else uses the configured one. Unknown extensions are treated as
// raw PCM.
func (s *googleService) recognitionFormat(filename string) (speechpb.RecognitionConfig_AudioEncoding, int) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return speechpb.RecognitionConfig_LINEAR16, s.sampleRate
	case ".mp3":
		return speechpb.RecognitionConfig_MP3, s.sampleRate
	case ".ogg":
		return speechpb.RecognitionConfig_OGG_OPUS, opusSampleRate
	case ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS, opusSampleRate
	default:
		return speechpb.RecognitionConfig_LINEAR16, s.sampleRate
	}
}

func joinTranscripts(resp *speechpb.RecognizeResponse) string {
	if resp == nil {
		return ""
	}

	var full strings.Builder
	for _, result := range resp.Results {
		if result == nil || len(result.Alternatives) == 0 || result.Alternatives[0] == nil {
			continue
		}
		transcript := strings.TrimSpace(result.Alternatives[0].Transcript)
		if transcript == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(transcript)
	}
	return full.String()
}

// clientOptionsFromEnv prefers inline JSON credentials over a key file path;
// with neither set the client falls back to application default credentials.
func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
