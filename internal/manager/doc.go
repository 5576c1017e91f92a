// Package manager is the reflection orchestrator. It owns the one model
// session of the process and turns reflection requests into results.
// It is structured into small files by concern:
//
//   - manager.go: Manager type, Load/Close lifecycle, mode listing.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, Snapshot, request/result types.
//   - errors.go: ValidationError, GenerationError, TimeoutError and the
//     backpressure/dependency errors, each with StatusCode for the HTTP layer.
//   - admission.go, fifo.go: bounded queue and the single in-flight slot,
//     granted strictly in arrival order.
//   - reflect.go: Reflect/Stream, validation, prompt and sampling assembly.
//   - generate.go: one bounded generation call and the session lease.
//   - guiding.go: the best-effort guiding question pass.
//   - scroll.go: scroll quotes and the startup warmup.
//   - status_report.go, metrics.go, events.go: observability.
//
// Build tags and runtimes:
//
//   - In-process llama: go-llama.cpp adapter, enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go (linker rpath hints).
//   - Without the tag, adapter_llama_stub.go refuses to load a model so that
//     the server fails at startup instead of serving without a runtime.
//
// Request flow: validate and compose (no blocking), wait for the session
// (FIFO), generate the reply, optionally generate a guiding question, release.
// A timed out call returns TimeoutError at once; the session is released only
// after the runtime has returned and the session has been reset.
package manager
