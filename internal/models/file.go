package models

import "time"

// IngestedFile represents an uploaded document after text extraction.
type IngestedFile struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	DisplayName   string    `json:"filename"`
	StoredName    string    `json:"storedName"`
	Path          string    `json:"-"`
	MimeType      string    `json:"mimeType"`
	ExtractedText string    `json:"extractedText"`
	Summary       string    `json:"summary"`
	TokenCount    int       `json:"tokenCount"`
	SizeBytes     int64     `json:"fileSize"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

// FileSummary is the listing view of an IngestedFile; it never carries the extracted text.
type FileSummary struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
	FileSize   int64     `json:"fileSize"`
	TokenCount int       `json:"tokenCount"`
	Summary    string    `json:"summary"`
}

// Summarize returns the listing view of f.
func (f *IngestedFile) Summarize() FileSummary {
	return FileSummary{
		ID:         f.ID,
		Filename:   f.DisplayName,
		MimeType:   f.MimeType,
		UploadedAt: f.UploadedAt,
		FileSize:   f.SizeBytes,
		TokenCount: f.TokenCount,
		Summary:    f.Summary,
	}
}
