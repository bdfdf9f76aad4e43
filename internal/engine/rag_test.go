package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfquery/internal/ai"
)

// fakeLLM embeds by keyword so retrieval is deterministic.
type fakeLLM struct {
	embedCalls int
	batchCalls int
	completeFn func(messages []ai.ChatMessage) (string, error)
}

func keywordVector(text string) []float32 {
	switch {
	case strings.Contains(text, "alpha"):
		return []float32{1, 0, 0}
	case strings.Contains(text, "beta"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func (f *fakeLLM) Embed(_ context.Context, _ ai.EmbeddingConfig, text string) ([]float32, error) {
	f.embedCalls++
	return keywordVector(text), nil
}

func (f *fakeLLM) EmbedBatch(_ context.Context, _ ai.EmbeddingConfig, texts []string) ([][]float32, error) {
	f.batchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

func (f *fakeLLM) Complete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	if f.completeFn != nil {
		return f.completeFn(messages)
	}
	return "answer", nil
}

func TestBuildIndexChunksAndEmbeds(t *testing.T) {
	llm := &fakeLLM{}
	rag := NewRAG(llm, ai.EmbeddingConfig{}, ai.ChatConfig{}, 0)

	// long enough for several chunks and more than one embedding batch
	text := strings.Repeat("alpha ", 5000)
	artifact, err := rag.BuildIndex(context.Background(), text)
	require.NoError(t, err)
	require.NotEmpty(t, artifact.Chunks)
	assert.Greater(t, len(artifact.Chunks), embeddingBatchSize)

	wantBatches := (len(artifact.Chunks) + embeddingBatchSize - 1) / embeddingBatchSize
	assert.Equal(t, wantBatches, llm.batchCalls)

	for _, c := range artifact.Chunks {
		assert.NotEmpty(t, c.Content)
		assert.Len(t, c.Embedding, 3)
	}
}

func TestBuildIndexEmptyText(t *testing.T) {
	rag := NewRAG(&fakeLLM{}, ai.EmbeddingConfig{}, ai.ChatConfig{}, 0)

	_, err := rag.BuildIndex(context.Background(), "   \n ")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestAnswerRetrievesMostSimilarChunk(t *testing.T) {
	var prompt string
	llm := &fakeLLM{
		completeFn: func(messages []ai.ChatMessage) (string, error) {
			require.Len(t, messages, 2)
			prompt = messages[1].Content
			return "  the alpha figure is 42  ", nil
		},
	}
	rag := NewRAG(llm, ai.EmbeddingConfig{}, ai.ChatConfig{}, 1)

	artifact := &Artifact{Chunks: []Chunk{
		{Content: "beta section: unrelated", Embedding: []float32{0, 1, 0}},
		{Content: "alpha section: the figure", Embedding: []float32{1, 0, 0}},
	}}

	answer, err := rag.Answer(context.Background(), artifact, "what about alpha?")
	require.NoError(t, err)
	assert.Equal(t, "the alpha figure is 42", answer, "answer is trimmed, not rewritten")

	assert.Contains(t, prompt, "alpha section: the figure")
	assert.NotContains(t, prompt, "beta section", "only top-k chunks enter the prompt")
	assert.Contains(t, prompt, "what about alpha?")
}

func TestAnswerEmptyInputs(t *testing.T) {
	rag := NewRAG(&fakeLLM{}, ai.EmbeddingConfig{}, ai.ChatConfig{}, 0)

	_, err := rag.Answer(context.Background(), &Artifact{}, "question")
	assert.ErrorIs(t, err, ErrEmptyArtifact)

	artifact := &Artifact{Chunks: []Chunk{{Content: "x", Embedding: []float32{1}}}}
	_, err = rag.Answer(context.Background(), artifact, "  ")
	assert.Error(t, err)
}

func TestChunkTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 1000)
	chunks := chunkText(text, 512, 64)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 512)
	assert.Len(t, chunks[1], 512)

	assert.Nil(t, chunkText("", 512, 64))

	short := chunkText("tiny", 512, 64)
	require.Len(t, short, 1)
	assert.Equal(t, "tiny", short[0])
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 3}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{1}, []float32{1, 2}), "mismatched dims score zero")
	assert.Equal(t, float32(0), cosineSimilarity(nil, nil))
}
