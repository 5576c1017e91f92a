package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mirrorpond/internal/modes"
	"mirrorpond/pkg/types"
)

// handleEncryption serves GET /encryption/{code}. Unknown codes are
// reported with valid=false rather than an error status.
//
// @Summary      Lore code lookup
// @Description  Reports which lore mode a numeric code activates.
// @Tags         lore
// @Produce      json
// @Param        code  path      string  true  "Lore code"
// @Success      200   {object}  types.EncryptionResponse
// @Router       /encryption/{code} [get]
func handleEncryption(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	resp := types.EncryptionResponse{Code: code, Mode: "UNKNOWN_MODE"}
	if c, ok := modes.LookupLore(code); ok {
		resp.Mode = c.Mode
		resp.Valid = true
	}
	resp.Description = "Activates " + resp.Mode + " in the trained model"
	writeJSON(w, http.StatusOK, resp)
}

// handleFormatPreview serves POST /debug/format.
//
// @Summary      Format dry run
// @Description  Applies the reply cleaner for the requested mode to canned output. The model is not called.
// @Tags         debug
// @Accept       json
// @Produce      json
// @Param        request  body      types.ReflectRequest  true  "Mode and user text; other fields are ignored"
// @Success      200      {object}  types.FormatPreviewResponse
// @Failure      400      {object}  types.ErrorResponse
// @Router       /debug/format [post]
func handleFormatPreview(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeReflect(w, r)
		if !ok {
			return
		}
		out, err := svc.FormatPreview(toReflection(req))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
