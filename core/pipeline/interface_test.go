package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/kbrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock EmbedFunc for testing
func mockEmbedFunc(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("empty text")
	}
	return []float32{3, 4}, nil
}

// Mock EmbedFunc that returns an error
func mockEmbedFuncError(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrEmbeddingUnavailable
}

func TestNewPipeline(t *testing.T) {
	t.Run("Create new pipeline", func(t *testing.T) {
		pipeline := NewPipeline(mockEmbedFunc)

		require.NotNil(t, pipeline, "Expected NewPipeline to return a non-nil instance")
		assert.NotNil(t, pipeline.Embedder, "Expected pipeline to have an embedder function")
		assert.NotNil(t, pipeline.Classifier, "Expected pipeline to have the default classifier")
		assert.NotNil(t, pipeline.Rewriter, "Expected pipeline to have the default rewriter")
	})

	t.Run("Setters replace functions", func(t *testing.T) {
		pipeline := NewPipeline(mockEmbedFunc)

		pipeline.SetClassifier(nil)
		pipeline.SetRewriter(nil)

		assert.Nil(t, pipeline.Classifier)
		assert.Nil(t, pipeline.Rewriter)
	})
}

func TestPipelinePrepare(t *testing.T) {
	ctx := context.Background()

	t.Run("Prepare embeds and normalizes the question", func(t *testing.T) {
		pipeline := NewPipeline(mockEmbedFunc)

		prepared, err := pipeline.Prepare(ctx, "  ขอเบิกเงินทุน  ", nil)

		require.NoError(t, err)
		assert.Equal(t, model.IntentQuery, prepared.Intent)
		assert.Equal(t, "ขอเบิกเงินทุน", prepared.Rewritten)
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, prepared.Vector, 1e-6)
		assert.NoError(t, prepared.EmbedErr)
	})

	t.Run("Blocked questions are not embedded", func(t *testing.T) {
		embedded := false
		pipeline := NewPipeline(func(ctx context.Context, text string) ([]float32, error) {
			embedded = true
			return []float32{1}, nil
		})

		prepared, err := pipeline.Prepare(ctx, "ขอสูตร คุกกี้ หน่อย", nil)

		require.NoError(t, err)
		assert.Equal(t, model.IntentBlock, prepared.Intent)
		assert.False(t, embedded, "Expected embedder not to be called for blocked questions")
		assert.Empty(t, prepared.Vector)
	})

	t.Run("Rewriter output is embedded", func(t *testing.T) {
		var embeddedText string
		pipeline := NewPipeline(func(ctx context.Context, text string) ([]float32, error) {
			embeddedText = text
			return []float32{1, 0}, nil
		})
		pipeline.SetRewriter(func(ctx context.Context, q string) (string, error) {
			return "ขั้นตอนการยื่นข้อเสนอโครงการ", nil
		})

		prepared, err := pipeline.Prepare(ctx, "ยื่นยังไง", nil)

		require.NoError(t, err)
		assert.Equal(t, "ขั้นตอนการยื่นข้อเสนอโครงการ", embeddedText)
		assert.Equal(t, "ขั้นตอนการยื่นข้อเสนอโครงการ", prepared.Rewritten)
	})

	t.Run("Rewriter failure falls back to the question", func(t *testing.T) {
		pipeline := NewPipeline(mockEmbedFunc)
		pipeline.SetRewriter(func(ctx context.Context, q string) (string, error) {
			return "", errors.New("llm down")
		})

		prepared, err := pipeline.Prepare(ctx, "ยื่นยังไง", nil)

		require.NoError(t, err)
		assert.Equal(t, "ยื่นยังไง", prepared.Rewritten)
		assert.NotEmpty(t, prepared.Vector)
	})

	t.Run("Classifier failure allows the question", func(t *testing.T) {
		pipeline := NewPipeline(mockEmbedFunc)
		pipeline.SetClassifier(func(ctx context.Context, q string) (model.Intent, error) {
			return "", errors.New("classifier down")
		})

		prepared, err := pipeline.Prepare(ctx, "question", nil)

		require.NoError(t, err)
		assert.Equal(t, model.IntentQuery, prepared.Intent)
	})

	t.Run("Embedding failure leaves an empty vector", func(t *testing.T) {
		pipeline := NewPipeline(mockEmbedFuncError)

		prepared, err := pipeline.Prepare(ctx, "question", nil)

		require.NoError(t, err, "Expected embedding failures not to be returned")
		assert.Empty(t, prepared.Vector)
		assert.ErrorIs(t, prepared.EmbedErr, ErrEmbeddingUnavailable)
	})

	t.Run("Zero embedding is unavailable", func(t *testing.T) {
		pipeline := NewPipeline(func(ctx context.Context, text string) ([]float32, error) {
			return []float32{0, 0}, nil
		})

		prepared, err := pipeline.Prepare(ctx, "question", nil)

		require.NoError(t, err)
		assert.Empty(t, prepared.Vector)
		assert.ErrorIs(t, prepared.EmbedErr, ErrEmbeddingUnavailable)
	})

	t.Run("Missing embedder", func(t *testing.T) {
		pipeline := NewPipeline(nil)

		prepared, err := pipeline.Prepare(ctx, "question", nil)

		require.NoError(t, err)
		assert.Error(t, prepared.EmbedErr)
	})

	t.Run("Cancelled context is returned", func(t *testing.T) {
		pipeline := NewPipeline(mockEmbedFunc)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := pipeline.Prepare(cancelled, "question", nil)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
