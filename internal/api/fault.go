package api

import "encoding/json"

// Fault type tags used in task output envelopes.
const (
	FaultWorkerExecution = "WorkerExecutionError"
	FaultTaskExecution   = "TaskExecutionError"
	FaultModelInvocation = "ModelInvocationError"
	FaultToolExecution   = "ToolExecutionError"
	FaultFileNotFound    = "FileNotFoundError"
)

// FaultEnvelope is the structured output recorded for a failed task. Failed
// tasks always store this envelope, never a bare error string, so the result
// tracker and clients can distinguish fault classes.
type FaultEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Type    string `json:"type"`
}

// Fault is an error carrying its envelope type tag. Handlers return Fault
// values so workers can record the right fault class without string matching.
type Fault struct {
	Type    string
	Details string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return f.Type
	}
	return f.Type + ": " + f.Err.Error()
}

func (f *Fault) Unwrap() error { return f.Err }

// EncodeFault renders the envelope for storage in a task record's output.
func EncodeFault(faultType, errMsg, details string) string {
	b, err := json.Marshal(FaultEnvelope{Error: errMsg, Details: details, Type: faultType})
	if err != nil {
		// marshal of three strings cannot fail; keep a plain fallback anyway
		return `{"error":"` + faultType + `","details":"","type":"` + faultType + `"}`
	}
	return string(b)
}
