package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusIndexed    DocumentStatus = "indexed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is a source record uploaded into one corpus. Metadata holds the
// archival fields (date, source_url, author, page) that are copied onto every
// passage produced from the document.
type Document struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	MimeType    string            `json:"mime_type"`
	StoragePath string            `json:"storage_path"`
	Corpus      string            `json:"corpus"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Passages    int               `json:"passages,omitempty"`
	Status      DocumentStatus    `json:"status"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
