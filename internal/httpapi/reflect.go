package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mirrorpond/internal/manager"
	"mirrorpond/internal/modes"
	"mirrorpond/pkg/types"
)

// decodeReflect reads a ReflectRequest body, writing the error response
// itself when the body is unusable.
func decodeReflect(w http.ResponseWriter, r *http.Request) (types.ReflectRequest, bool) {
	var req types.ReflectRequest
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

func toReflection(req types.ReflectRequest) manager.ReflectionRequest {
	return manager.ReflectionRequest{
		Mode:     req.Mode,
		UserText: req.UserText,
		Overrides: modes.Sampling{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			TopK:        req.TopK,
			MaxTokens:   req.MaxTokens,
			Stop:        req.Stop,
		},
		Encryption: req.Encryption,
	}
}

func toResponse(res manager.ReflectionResult) types.ReflectResponse {
	return types.ReflectResponse{
		ID:              res.ID,
		ReplyText:       res.ReplyText,
		GuidingQuestion: res.GuidingQuestion,
		ModeUsed:        string(res.ModeUsed),
		Usage: types.Usage{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		},
		ScrollNumber:   res.ScrollNumber,
		EncryptionHash: res.EncryptionHash,
		DurationMS:     res.Duration.Milliseconds(),
	}
}

// handleReflect serves POST /reflect.
//
// @Summary      Reflect
// @Description  Runs one reflection in the requested mode and returns the finished result.
// @Tags         reflect
// @Accept       json
// @Produce      json
// @Param        request  body      types.ReflectRequest  true  "Reflection request"
// @Success      200      {object}  types.ReflectResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Failure      504      {object}  types.ErrorResponse
// @Router       /reflect [post]
func handleReflect(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeReflect(w, r)
		if !ok {
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, req.Mode)

		ctx, cancel := requestContext(r.Context())
		defer cancel()
		res, err := svc.Reflect(ctx, toReflection(req))
		if err != nil {
			if r.Context().Err() != nil {
				logEnd(r, lvl, statusClientClosed, start, err)
				return
			}
			logEnd(r, lvl, writeServiceError(w, err), start, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(res))
		logEnd(r, lvl, http.StatusOK, start, nil)
	}
}

// handleReflectStream serves POST /reflect/stream as NDJSON: one line per
// token, then a final line with the result or the error. Errors raised
// before the first token still get a plain status code.
//
// @Summary      Reflect (streaming)
// @Description  Streams reply tokens as NDJSON lines, then a final line with done=true and the result.
// @Tags         reflect
// @Accept       json
// @Produce      application/x-ndjson
// @Param        request  body      types.ReflectRequest  true  "Reflection request"
// @Success      200      {object}  types.StreamLine
// @Failure      400      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /reflect/stream [post]
func handleReflectStream(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeReflect(w, r)
		if !ok {
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, req.Mode)

		var out io.Writer = w
		if lvl >= LevelDebug {
			out = io.MultiWriter(w, &loggingLineWriter{rid: middleware.GetReqID(r.Context())})
		}
		enc := json.NewEncoder(out)
		flush := func() {}
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		started := false
		begin := func() {
			if !started {
				w.Header().Set("Content-Type", "application/x-ndjson")
				w.WriteHeader(http.StatusOK)
				started = true
			}
		}

		ctx, cancel := requestContext(r.Context())
		defer cancel()
		res, err := svc.Stream(ctx, toReflection(req), func(c manager.Chunk) error {
			begin()
			if err := enc.Encode(types.StreamLine{Token: c.Token}); err != nil {
				return err
			}
			flush()
			return nil
		})
		if err != nil {
			switch {
			case r.Context().Err() != nil:
				logEnd(r, lvl, statusClientClosed, start, err)
			case !started:
				logEnd(r, lvl, writeServiceError(w, err), start, err)
			default:
				body := errorBody(err)
				_ = enc.Encode(types.StreamLine{Done: true, Error: &body})
				flush()
				logEnd(r, lvl, body.Code, start, err)
			}
			return
		}
		begin()
		resp := toResponse(res)
		_ = enc.Encode(types.StreamLine{Done: true, Result: &resp})
		flush()
		logEnd(r, lvl, http.StatusOK, start, nil)
	}
}

// handleScroll serves GET /scroll/{n}.
//
// @Summary      Scroll quote
// @Description  Quotes scroll n (1-13) in scroll mode.
// @Tags         reflect
// @Produce      json
// @Param        n    path      int  true  "Scroll number"
// @Success      200  {object}  types.ReflectResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      504  {object}  types.ErrorResponse
// @Router       /scroll/{n} [get]
func handleScroll(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "scroll number must be an integer")
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, string(modes.Scroll))

		ctx, cancel := requestContext(r.Context())
		defer cancel()
		res, err := svc.Scroll(ctx, n)
		if err != nil {
			if r.Context().Err() != nil {
				logEnd(r, lvl, statusClientClosed, start, err)
				return
			}
			logEnd(r, lvl, writeServiceError(w, err), start, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(res))
		logEnd(r, lvl, http.StatusOK, start, nil)
	}
}
