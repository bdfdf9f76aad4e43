// Package engine is the retrieval/question-answering collaborator. The
// rest of the service treats its Artifact as an opaque value: build one
// from document text, persist it, and answer questions against it.
package engine

import "context"

// Chunk is one retrievable span of document text with its embedding vector.
type Chunk struct {
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// Artifact is the product of an index build.
type Artifact struct {
	Chunks []Chunk `json:"chunks"`
}

// Engine builds retrievable indexes from plain text and answers questions
// against a previously built artifact.
type Engine interface {
	BuildIndex(ctx context.Context, text string) (*Artifact, error)
	Answer(ctx context.Context, artifact *Artifact, question string) (string, error)
}
