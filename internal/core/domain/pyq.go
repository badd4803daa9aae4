package domain

import (
	"strings"
	"time"
)

// PYQRecord is one historical exam question. Records are immutable once
// indexed: bulk ingestion creates them, full re-ingestion of the subject
// replaces them.
type PYQRecord struct {
	ID       int64   `json:"id,omitempty"`
	Subject  string  `json:"subject"`
	Question string  `json:"question"`
	SubTopic string  `json:"sub_topic,omitempty"`
	Marks    float64 `json:"marks"`
	Year     string  `json:"year"`
	Semester string  `json:"semester,omitempty"`
	Branch   string  `json:"branch,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// Validate reports why a record cannot be indexed under the given subject.
func (r PYQRecord) Validate(subject string) error {
	if strings.TrimSpace(r.Question) == "" {
		return WrapError(ErrIngestion, "validate record", errEmptyQuestion)
	}
	if strings.TrimSpace(r.Subject) == "" || r.Subject != subject {
		return WrapError(ErrIngestion, "validate record", errSubjectMismatch)
	}
	return nil
}

var (
	errEmptyQuestion   = strError("empty question text")
	errSubjectMismatch = strError("record subject does not match batch subject")
)

type strError string

func (e strError) Error() string { return string(e) }

// HistoryEntry records one processed upload.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Subject   string    `json:"subject"`
	Pages     int       `json:"pages"`
	Matched   int       `json:"matched"`
	CreatedAt time.Time `json:"created_at"`
}
