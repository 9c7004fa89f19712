package domain

// Citation is a bracketed-marker citation extracted from assistant
// output. The ID is the integer the answer text references as [id]; it
// is not guaranteed to match a RAGSource id, because the model may cite
// authorities it knows about that were never retrieved.
type Citation struct {
	ID        int    `json:"id"`
	Citation  string `json:"citation"`
	Paragraph *int   `json:"paragraph,omitempty"`
}
