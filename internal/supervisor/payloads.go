package supervisor

// StatusPayload is published on the status channel whenever the agent
// process starts or stops. Code and Signal are only set on stop.
type StatusPayload struct {
	Running bool    `json:"running"`
	PID     int     `json:"pid,omitempty"`
	Code    *int    `json:"code,omitempty"`
	Signal  *string `json:"signal,omitempty"`
}

// ExitPayload is published on the exit channel when the agent process
// terminates, expected or not.
type ExitPayload struct {
	Code     *int    `json:"code,omitempty"`
	Signal   *string `json:"signal,omitempty"`
	Expected bool    `json:"expected"`
}

// ErrorPayload is published on the error channel for spawn failures,
// framing errors, write failures, the startup watchdog, and crash-loop
// disable.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// rawLinePayload wraps a non-JSON stdout/stderr line so it still flows
// through the message channel with a recognizable shape.
type rawLinePayload struct {
	Type string `json:"type"`
	Line string `json:"line"`
}

// Error kinds.
const (
	errKindSpawn     = "spawn_failure"
	errKindFraming   = "framing"
	errKindWrite     = "write_failure"
	errKindWatchdog  = "startup_watchdog"
	errKindExit      = "unexpected_exit"
	errKindCrashLoop = "crash_loop"
)
