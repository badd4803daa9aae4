package domain

// SubTopicUnclassified is the sentinel label used when sub-topic inference
// cannot produce a confident answer.
const SubTopicUnclassified = "Unclassified"

// MatchCandidate is a transient retrieval result: one PYQ record with its
// best relevance score across document chunks. Rank starts at 1.
type MatchCandidate struct {
	Record PYQRecord `json:"record"`
	Score  float64   `json:"score"`
	Rank   int       `json:"rank"`
}

// IndexHit is a raw nearest-neighbor hit: the record's insertion ordinal in
// its subject index plus a normalized similarity score (higher is better).
type IndexHit struct {
	Ordinal int
	Score   float64
}

// SubTopicGuess is the classification collaborator's verdict.
type SubTopicGuess struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// AnswerSpan is the extraction collaborator's verdict: the passage of the
// document answering a question. An empty Text means "not found".
type AnswerSpan struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// HighlightRegion is a page-scoped box identifying where an answer is
// visually located.
type HighlightRegion struct {
	Page int         `json:"page"`
	Box  BoundingBox `json:"box"`
}

// AnnotationResult is the pipeline's output unit for one candidate.
type AnnotationResult struct {
	Record     PYQRecord         `json:"record"`
	SubTopic   string            `json:"sub_topic"`
	Answer     string            `json:"answer"`
	Confidence float64           `json:"confidence"`
	Regions    []HighlightRegion `json:"regions"`
	Rank       int               `json:"rank"`
}

// FailedCandidate records a candidate whose location step exhausted its
// retry budget. Kept for caller visibility; never aborts the batch.
type FailedCandidate struct {
	Rank     int    `json:"rank"`
	Question string `json:"question"`
	Reason   string `json:"reason"`
}

// MatchReport is the caller-facing result: annotation results in retriever
// rank order plus the candidates that failed location.
type MatchReport struct {
	Subject string             `json:"subject"`
	Results []AnnotationResult `json:"results"`
	Failed  []FailedCandidate  `json:"failed"`
}

// FailedCount is a convenience for callers that only need visibility into
// how many candidates were dropped.
func (r MatchReport) FailedCount() int { return len(r.Failed) }
