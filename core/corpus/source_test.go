package corpus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	items := testItems(3)

	t.Run("Stable for equal items", func(t *testing.T) {
		assert.Equal(t, Fingerprint(items), Fingerprint(testItems(3)))
		assert.Len(t, Fingerprint(items), 64)
	})

	t.Run("Changes with content", func(t *testing.T) {
		changed := testItems(3)
		changed[1].Content = "updated"

		assert.NotEqual(t, Fingerprint(items), Fingerprint(changed))
	})

	t.Run("Changes with order", func(t *testing.T) {
		swapped := testItems(3)
		swapped[0], swapped[1] = swapped[1], swapped[0]

		assert.NotEqual(t, Fingerprint(items), Fingerprint(swapped))
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "abc", CacheKey("", "abc"))
	assert.NotEqual(t, CacheKey("bge-m3", "abc"), CacheKey("e5", "abc"))
	assert.Len(t, CacheKey("bge-m3", "abc"), 64)
}

func TestStaticSource(t *testing.T) {
	ctx := context.Background()
	source := NewStaticSource(testItems(2)...)

	items, err := source.LoadItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	pending, err := source.PendingUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	source.SetItems(testItems(3)...)

	pending, err = source.PendingUpdate(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	confirmed, err := source.ConfirmSync(ctx)
	require.NoError(t, err)
	assert.True(t, confirmed)

	confirmed, err = source.ConfirmSync(ctx)
	require.NoError(t, err)
	assert.False(t, confirmed, "Expected second confirm to find nothing pending")
}

func TestDigest(t *testing.T) {
	items := testItems(2)
	digest, err := Digest(items)
	require.NoError(t, err)

	t.Run("Stable for equal items", func(t *testing.T) {
		again, err := Digest(testItems(2))
		require.NoError(t, err)
		assert.Equal(t, digest, again)
	})

	t.Run("Metadata changes the digest but not the fingerprint", func(t *testing.T) {
		changed := testItems(2)
		changed[0].Metadata.Status = "closed"
		other, err := Digest(changed)
		require.NoError(t, err)
		assert.NotEqual(t, digest, other, "Expected metadata in the digest")
		assert.Equal(t, Fingerprint(items), Fingerprint(changed), "Expected content-only fingerprint")
	})
}
