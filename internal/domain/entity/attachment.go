package entity

import "time"

// ClaimAttachment is an append-only file reference attached to a claim
type ClaimAttachment struct {
	ID             int64     `json:"id"`
	ClaimID        int64     `json:"claim_id"`
	DocumentTypeID *int64    `json:"document_type_id,omitempty"`
	FilePath       string    `json:"file_path"`
	OriginalName   string    `json:"original_name"`
	FileSize       int64     `json:"file_size"`
	MimeType       string    `json:"mime_type"`
	PageCount      *int      `json:"page_count,omitempty"`
	UploadedBy     *int64    `json:"uploaded_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsPDF returns true if the stored file is a PDF document
func (a *ClaimAttachment) IsPDF() bool {
	return a.MimeType == MimeTypePDF
}

// AttachmentFile represents uploaded file content before it is stored
type AttachmentFile struct {
	Content  []byte
	FileName string
	MimeType string
}

// Size returns the content length in bytes
func (f *AttachmentFile) Size() int64 {
	return int64(len(f.Content))
}
