package models

// ResolutionOutcome is the terminal state of document resolution for one bid.
type ResolutionOutcome string

const (
	ResolvedDirect        ResolutionOutcome = "resolved_direct"
	ResolvedViaExtraction ResolutionOutcome = "resolved_via_extraction"
	Unresolved            ResolutionOutcome = "unresolved"
)

// ResolvedDocument tracks a bid's document from landing URL to local file.
type ResolvedDocument struct {
	BidID          string            `json:"b_id"`
	LandingURL     string            `json:"doc_url"`
	FileURL        string            `json:"pdf_url,omitempty"`
	StoragePath    string            `json:"pdf_path,omitempty"`
	DiagnosticPath string            `json:"diagnostic_path,omitempty"`
	Outcome        ResolutionOutcome `json:"outcome"`
}
