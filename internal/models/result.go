package models

// ScoredDocument is a single retrieval hit. It marshals as {"content", "kind", "score"}.
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// RetrievalResult is ranked by non-increasing score; ties keep insertion order.
type RetrievalResult []ScoredDocument

// Documents returns the documents of r in rank order.
func (r RetrievalResult) Documents() []Document {
	docs := make([]Document, len(r))
	for i, hit := range r {
		docs[i] = hit.Document
	}
	return docs
}

// GeneratedAnswer is the folded output of one generation call.
type GeneratedAnswer struct {
	Text string `json:"text"`
}

// Answer is what the pipeline returns for one query: the retrieved chunks and the generated text.
type Answer struct {
	Retrieved RetrievalResult `json:"retrieved"`
	Answer    string          `json:"answer"`
}
