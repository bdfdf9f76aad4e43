package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"pdfquery/internal/ai"
)

const (
	defaultChunkSize    = 512
	defaultChunkOverlap = 64
	defaultTopK         = 5
	embeddingBatchSize  = 10 // DashScope and similar APIs often limit batch size
)

var (
	ErrEmptyDocument = errors.New("document has no extractable text")
	ErrEmptyArtifact = errors.New("artifact has no chunks")
)

// LLMClient is the subset of the OpenAI-compatible client the engine uses.
type LLMClient interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// RAG implements Engine over an OpenAI-compatible embeddings and chat API.
type RAG struct {
	client LLMClient
	emb    ai.EmbeddingConfig
	chat   ai.ChatConfig
	topK   int
}

func NewRAG(client LLMClient, emb ai.EmbeddingConfig, chat ai.ChatConfig, topK int) *RAG {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &RAG{
		client: client,
		emb:    emb,
		chat:   chat,
		topK:   topK,
	}
}

// BuildIndex chunks the text and embeds every chunk in batches.
func (e *RAG) BuildIndex(ctx context.Context, text string) (*Artifact, error) {
	chunks := chunkText(text, defaultChunkSize, defaultChunkOverlap)
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	var embeddings [][]float32
	for i := 0; i < len(chunks); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batched, err := e.client.EmbedBatch(ctx, e.emb, chunks[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunk batch failed: %w", err)
		}
		embeddings = append(embeddings, batched...)
	}
	if len(embeddings) != len(chunks) {
		return nil, errors.New("embedding count mismatch")
	}

	artifact := &Artifact{Chunks: make([]Chunk, len(chunks))}
	for i := range chunks {
		artifact.Chunks[i] = Chunk{Content: chunks[i], Embedding: embeddings[i]}
	}
	return artifact, nil
}

// Answer embeds the question, retrieves the top-k most similar chunks, and
// asks the chat model to answer from that context only.
func (e *RAG) Answer(ctx context.Context, artifact *Artifact, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is empty")
	}
	if artifact == nil || len(artifact.Chunks) == 0 {
		return "", ErrEmptyArtifact
	}

	queryEmb, err := e.client.Embed(ctx, e.emb, question)
	if err != nil {
		return "", fmt.Errorf("embed question failed: %w", err)
	}

	selected := topKChunks(artifact.Chunks, queryEmb, e.topK)

	var contextBlock strings.Builder
	for _, c := range selected {
		contextBlock.WriteString("\n---\n")
		contextBlock.WriteString(c.Content)
	}
	contextBlock.WriteString("\n---")

	messages := []ai.ChatMessage{
		{
			Role:    "system",
			Content: "You are a helpful assistant. Answer the user's question based only on the following context. If the context does not contain enough information, say so. Do not make up facts.",
		},
		{
			Role:    "user",
			Content: "Context:" + contextBlock.String() + "\n\nQuestion: " + question + "\n\nAnswer:",
		},
	}

	answer, err := e.client.Complete(ctx, e.chat, messages)
	if err != nil {
		return "", fmt.Errorf("answer completion failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// chunkText splits text into overlapping chunks by rune count.
func chunkText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap >= size {
		overlap = size / 2
	}
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		i += size - overlap
		if i >= len(runes) {
			break
		}
	}
	return chunks
}

func topKChunks(chunks []Chunk, queryEmb []float32, k int) []Chunk {
	type scored struct {
		chunk Chunk
		score float32
	}
	all := make([]scored, len(chunks))
	for i := range chunks {
		all[i] = scored{chunk: chunks[i], score: cosineSimilarity(queryEmb, chunks[i].Embedding)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	if k > len(all) {
		k = len(all)
	}
	out := make([]Chunk, k)
	for i := 0; i < k; i++ {
		out[i] = all[i].chunk
	}
	return out
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
