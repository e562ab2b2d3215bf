package constants

// JobStatus is the canonical status for a submitted batch job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
)

// DocStatus is the terminal status of one document within a job.
type DocStatus string

const (
	DocStatusPending    DocStatus = "pending"
	DocStatusProcessing DocStatus = "processing"
	DocStatusDone       DocStatus = "done"
	DocStatusFailed     DocStatus = "failed"
	DocStatusPartial    DocStatus = "partial"
)

// Extraction notes appended to a document's record when something degraded
// the run. Pipe-joined into the final Extraction_Note column.
const (
	NoteAPIError          = "API_ERROR"
	NotePartialOCR        = "PARTIAL_OCR"
	NoteNameNotFound      = "NAME_NOT_FOUND"
	NoteNotMedicalReport  = "NOT_MEDICAL_REPORT"
	NotePDFCorrupted      = "PDF_CORRUPTED"
	NotePDFPasswordLocked = "PDF_PASSWORD_PROTECTED"
)
