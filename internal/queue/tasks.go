package queue

import "time"

const TypeDocumentIngest = "document:ingest"

// DocumentIngestPayload carries the extracted text, not the raw upload.
// Extraction and validation already ran in the API process, so a retried
// task only redoes the chunk/embed/upsert path under the same document id.
type DocumentIngestPayload struct {
	DocumentID string    `json:"document_id"`
	OwnerID    string    `json:"owner_id"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
	UploadTime time.Time `json:"upload_time"`
}
