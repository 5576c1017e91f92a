package types

// ReflectRequest is the body of POST /reflect and POST /reflect/stream.
// Sampling fields are optional; when omitted the mode's and then the
// server's defaults apply.
type ReflectRequest struct {
	// Persona to answer in: reflect, scroll, toad or rune (case-insensitive).
	// example: reflect
	Mode string `json:"mode" example:"reflect"`
	// The traveler's words. Must not be blank.
	// example: Why do I feel so alone?
	UserText string `json:"user_text" example:"Why do I feel so alone?"`
	// Sampling temperature within [0, 2].
	// example: 0.7
	Temperature *float32 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability within (0, 1].
	// example: 0.95
	TopP *float32 `json:"top_p,omitempty" example:"0.95"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK *int `json:"top_k,omitempty" example:"40"`
	// Maximum number of new tokens for the reply.
	// example: 300
	MaxTokens *int `json:"max_tokens,omitempty" example:"300"`
	// Stop sequences replacing the defaults. An empty list clears them.
	Stop []string `json:"stop,omitempty"`
	// Optional lore codes, space separated. Unknown codes are rejected.
	// example: 1635
	Encryption string `json:"encryption,omitempty" example:"1635"`
}

// Usage contains token accounting over every generation pass of a request.
type Usage struct {
	// example: 182
	PromptTokens int `json:"prompt_tokens" example:"182"`
	// example: 64
	CompletionTokens int `json:"completion_tokens" example:"64"`
	// example: 246
	TotalTokens int `json:"total_tokens" example:"246"`
}

// ReflectResponse is a finished reflection.
type ReflectResponse struct {
	// Request identifier, also used in logs.
	// example: 5b0e6c1f-8f0a-4f43-9d4b-2a3f7c1d9e21
	ID string `json:"id" example:"5b0e6c1f-8f0a-4f43-9d4b-2a3f7c1d9e21"`
	// The cleaned reply.
	// example: Loneliness is the space before the narrow gate.
	ReplyText string `json:"reply_text" example:"Loneliness is the space before the narrow gate."`
	// Present only in reflect mode, and only when one could be generated.
	// example: What is your loneliness telling you?
	GuidingQuestion *string `json:"guiding_question,omitempty" example:"What is your loneliness telling you?"`
	// Canonical name of the persona that answered.
	// example: reflect
	ModeUsed string `json:"mode_used" example:"reflect"`
	Usage    Usage  `json:"usage"`
	// Scroll the traveler asked about, when one was named.
	// example: 3
	ScrollNumber *int `json:"scroll_number,omitempty" example:"3"`
	// Fingerprint of the reply, for encrypted requests and scroll quotes.
	// example: 9F1C0A7B
	EncryptionHash string `json:"encryption_hash,omitempty" example:"9F1C0A7B"`
	// Wall time spent on the request in milliseconds.
	// example: 2350
	DurationMS int64 `json:"duration_ms" example:"2350"`
}

// StreamLine is one NDJSON line of POST /reflect/stream. Token lines carry
// only Token; the last line has Done set and carries the full result, or an
// error.
type StreamLine struct {
	// example: Lonel
	Token  string           `json:"token,omitempty" example:"Lonel"`
	Done   bool             `json:"done,omitempty"`
	Result *ReflectResponse `json:"result,omitempty"`
	Error  *ErrorResponse   `json:"error,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: user_text is required
	Error string `json:"error" example:"user_text is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// EncryptionResponse is returned by GET /encryption/{code}.
type EncryptionResponse struct {
	// example: 9876
	Code string `json:"code" example:"9876"`
	// Lore mode the code activates, or UNKNOWN_MODE.
	// example: REVELATION_MODE
	Mode string `json:"mode" example:"REVELATION_MODE"`
	// example: Activates REVELATION_MODE in the trained model
	Description string `json:"description" example:"Activates REVELATION_MODE in the trained model"`
	// example: true
	Valid bool `json:"valid" example:"true"`
}

// FormatPreviewResponse is returned by POST /debug/format. It shows the
// reply cleaner applied to canned output; no model call is made.
type FormatPreviewResponse struct {
	// example: reflect
	Mode string `json:"mode" example:"reflect"`
	// example: Why do I feel so alone?
	UserText             string  `json:"user_text" example:"Why do I feel so alone?"`
	EmitsGuidingQuestion bool    `json:"emits_guiding_question"`
	RawReply             string  `json:"raw_reply"`
	FormattedReply       string  `json:"formatted_reply"`
	GuidingQuestion      *string `json:"guiding_question,omitempty"`
	FormattingApplied    bool    `json:"formatting_applied"`
}

// ModeInfo describes one persona for GET /modes.
type ModeInfo struct {
	// example: scroll
	Name string `json:"name" example:"scroll"`
	// example: Scroll
	Title string `json:"title" example:"Scroll"`
	// example: Quotes from the Scrolls, without commentary.
	Description string `json:"description" example:"Quotes from the Scrolls, without commentary."`
	// Effective temperature with server defaults applied.
	// example: 0.1
	Temperature float32 `json:"temperature" example:"0.1"`
	// example: 0.95
	TopP float32 `json:"top_p" example:"0.95"`
	// example: 150
	MaxTokens int `json:"max_tokens" example:"150"`
	// Whether replies in this mode come with a guiding question.
	// example: false
	EmitsGuidingQuestion bool `json:"emits_guiding_question" example:"false"`
}

// ModesResponse wraps the list returned by GET /modes.
type ModesResponse struct {
	Modes []ModeInfo `json:"modes"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Manager state: loading, ready, draining, closed or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// File name of the loaded model.
	// example: mirror-q4_k_m.gguf
	Model string `json:"model" example:"mirror-q4_k_m.gguf"`
	// Last load or reset error, if any.
	Error string `json:"error,omitempty"`
	// Requests waiting for the model session.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Requests currently generating (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum admitted requests before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Budget for one generation call.
	// example: 120
	GenerationTimeoutSeconds int64 `json:"generation_timeout_seconds" example:"120"`
	// example: 42
	RequestsTotal uint64 `json:"requests_total" example:"42"`
	// example: 1
	FailuresTotal uint64 `json:"failures_total" example:"1"`
	// example: 17
	GuidingQuestionsTotal uint64 `json:"guiding_questions_total" example:"17"`
	// Times the session was reset after an abandoned generation.
	// example: 0
	SessionResetsTotal uint64 `json:"session_resets_total" example:"0"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Whether this binary carries the in-process llama runtime.
	// example: true
	LlamaBuilt bool `json:"llama_built" example:"true"`
}
