package constants

// PipelineState is the canonical state of one intake run.
type PipelineState string

// Stable values (these exact strings appear in logs).
const (
	StateReceived   PipelineState = "RECEIVED"   // request accepted, nothing done yet
	StateStaged     PipelineState = "STAGED"     // media downloaded to scratch
	StateRecognized PipelineState = "RECOGNIZED" // OCR produced text
	StateExtracted  PipelineState = "EXTRACTED"  // invoice fields extracted
	StatePersisted  PipelineState = "PERSISTED"  // invoice row written
	StateNotified   PipelineState = "NOTIFIED"   // confirmation sent (best effort)
	StateCompleted  PipelineState = "COMPLETED"  // terminal success
	StateAborted    PipelineState = "ABORTED"    // terminal failure
)
