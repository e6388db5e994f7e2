package models

// ManifestEntry is the per-bid record written to the run manifest.
type ManifestEntry struct {
	BidID     string `json:"b_id"`
	BidNumber string `json:"bid_number"`
	Title     string `json:"title"`
	StartUTC  string `json:"start_utc"`
	EndUTC    string `json:"end_utc"`
	DocURL    string `json:"doc_url"`
	PDFURL    string `json:"pdf_url"`
	PDFPath   string `json:"pdf_path"`
}

// NewManifestEntry seeds an entry from a bid and its landing URL.
func NewManifestEntry(bid BidRecord, docURL string) ManifestEntry {
	return ManifestEntry{
		BidID:     bid.ID,
		BidNumber: bid.BidNumber,
		Title:     bid.Title,
		StartUTC:  bid.StartUTC(),
		EndUTC:    bid.EndUTC(),
		DocURL:    docURL,
	}
}

// RunManifest is the ordered, append-only list of entries for one run.
type RunManifest struct {
	Entries []ManifestEntry
}

// Append adds an entry at the end of the manifest.
func (m *RunManifest) Append(entry ManifestEntry) {
	m.Entries = append(m.Entries, entry)
}

// Snapshot returns a copy safe to serialize; never nil so it encodes as [].
func (m *RunManifest) Snapshot() []ManifestEntry {
	out := make([]ManifestEntry, len(m.Entries))
	copy(out, m.Entries)
	return out
}
