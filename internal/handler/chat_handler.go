package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"dietitian/internal/app/coach"
	"dietitian/internal/app/record"
	"dietitian/internal/pkg/errs"
	"dietitian/internal/pkg/logx"
	"dietitian/internal/pkg/req"
	"dietitian/internal/pkg/resp"
)

// allowedUploadExts is the single accepted-extension set for chat uploads.
// Only the image field is gated by it; audio uploads pass on presence alone
// and the recognizer decides from the filename which encoding to assume.
var allowedUploadExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".wav":  {},
	".mp3":  {},
	".ogg":  {},
	".webm": {},
}

// HandleChat processes one conversation turn. The request is a multipart
// form with a user_id field plus any combination of a message field, an
// image file, and an audio file; at least one of the three must be present.
func HandleChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		userID := strings.TrimSpace(r.FormValue("user_id"))
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserIDRequired))
			return
		}

		if _, err := deps.Store.Load(userID); err != nil {
			if errors.Is(err, record.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "chat: loading user record failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrRecordStorage))
			return
		}

		message := strings.TrimSpace(r.FormValue("message"))

		image, imageMime, customErr := readImagePart(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		audio, audioName, customErr := readAudioPart(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if message == "" && len(image) == 0 && len(audio) == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrChatInputMissing))
			return
		}

		logx.Info("chat turn", "user_id", userID,
			"has_text", message != "", "image_bytes", len(image), "audio_bytes", len(audio))

		reply, err := deps.Coach.Respond(r.Context(), coach.Input{
			UserID:    userID,
			Message:   message,
			Image:     image,
			ImageMime: imageMime,
			Audio:     audio,
			AudioName: audioName,
		})
		if err != nil {
			if errors.Is(err, record.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "chat: turn failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"response": reply,
			"user_id":  userID,
		})
	}
}

// readImagePart reads the optional image upload. A file whose extension is
// outside the allowed set is ignored rather than rejected, so a stray
// attachment never blocks an otherwise valid turn.
func readImagePart(r *http.Request) ([]byte, string, *errs.CustomError) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errs.NewError(errs.ErrUploadUnreadable, "image")
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, "", nil
	}
	if _, ok := allowedUploadExts[strings.ToLower(filepath.Ext(header.Filename))]; !ok {
		logx.Warn("chat: ignoring image with disallowed extension", "filename", header.Filename)
		return nil, "", nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", errs.NewError(errs.ErrUploadUnreadable, "image")
	}
	return data, header.Header.Get("Content-Type"), nil
}

// readAudioPart reads the optional voice-note upload.
func readAudioPart(r *http.Request) ([]byte, string, *errs.CustomError) {
	file, header, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errs.NewError(errs.ErrUploadUnreadable, "audio")
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, "", nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", errs.NewError(errs.ErrUploadUnreadable, "audio")
	}
	return data, header.Filename, nil
}
