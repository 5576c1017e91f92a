package httpapi

import "slices"

const defaultMaxBodyBytes int64 = 1 << 20

// maxBodyBytes caps JSON request bodies and websocket frames.
var maxBodyBytes = defaultMaxBodyBytes

// SetMaxBodyBytes sets the request size limit; n <= 0 restores 1 MiB.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = defaultMaxBodyBytes
	}
	maxBodyBytes = n
}

// corsOrigins lists the origins the Mirror UI may be served from. Empty
// disables the CORS middleware; "*" allows any origin.
var corsOrigins []string

// Methods and headers used by the reflection API.
var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Content-Type", "X-Log-Level", "X-Request-Id"}
)

// SetCORSOrigins configures the allowed origins. It must be called before
// NewMux.
func SetCORSOrigins(origins []string) {
	corsOrigins = slices.Clone(origins)
}

func corsEnabled() bool { return len(corsOrigins) > 0 }

// originAllowed reports whether origin is listed in the CORS configuration.
func originAllowed(origin string) bool {
	return slices.Contains(corsOrigins, "*") || slices.Contains(corsOrigins, origin)
}
