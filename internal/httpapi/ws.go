package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"mirrorpond/internal/manager"
	"mirrorpond/pkg/types"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts same-host origins and any origin allowed by CORS.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if corsEnabled() && originAllowed(origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// handleWebSocket serves GET /ws. Each text frame from the client is a
// ReflectRequest; the server answers with token frames and a final frame
// with done set, the same shape as the NDJSON stream. Requests on one
// connection are handled one after another.
func handleWebSocket(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxBodyBytes)

		ctx, cancel := requestContext(r.Context())
		defer cancel()
		lvl := requestLogLevel(r)

		send := func(line types.StreamLine) error {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteJSON(line)
		}
		for {
			var req types.ReflectRequest
			if err := conn.ReadJSON(&req); err != nil {
				var ce *websocket.CloseError
				if !errors.As(err, &ce) && ctx.Err() == nil {
					// Not a close frame: the payload was not a request.
					_ = send(types.StreamLine{Done: true, Error: &types.ErrorResponse{Error: "invalid JSON frame", Code: http.StatusBadRequest}})
				}
				return
			}
			start := time.Now()
			logStart(r, lvl, req.Mode)
			res, err := svc.Stream(ctx, toReflection(req), func(c manager.Chunk) error {
				return send(types.StreamLine{Token: c.Token})
			})
			if err != nil {
				body := errorBody(err)
				logEnd(r, lvl, body.Code, start, err)
				if ctx.Err() != nil || send(types.StreamLine{Done: true, Error: &body}) != nil {
					return
				}
				continue
			}
			resp := toResponse(res)
			if err := send(types.StreamLine{Done: true, Result: &resp}); err != nil {
				return
			}
			logEnd(r, lvl, http.StatusOK, start, nil)
			if zlog != nil && lvl >= LevelDebug {
				zlog.Debug().Str("request_id", middleware.GetReqID(r.Context())).Str("id", resp.ID).Msg("ws reflection sent")
			}
		}
	}
}
