package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_Put(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(root, "media/")
	require.NoError(t, err)
	assert.Equal(t, "/media", store.BaseURL())

	ref, err := store.Put(context.Background(), &domain.MediaUpload{
		Filename: "Flyer.PNG",
		Kind:     domain.MediaImages,
		Category: domain.CategoryPosts,
		Data:     []byte("png-bytes"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/media/images/posts/"), ref)
	assert.True(t, strings.HasSuffix(ref, ".png"), ref)

	onDisk := filepath.Join(root, strings.TrimPrefix(ref, "/media/"))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	entries, err := os.ReadDir(filepath.Dir(onDisk))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not linger")
}

func TestLocalStorage_DistinctNames(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	upload := &domain.MediaUpload{Filename: "a.mp3", Kind: domain.MediaOther, Category: domain.CategoryAudios, Data: []byte("x")}

	first, err := store.Put(context.Background(), upload)
	require.NoError(t, err)
	second, err := store.Put(context.Background(), upload)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/media")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, &domain.MediaUpload{Filename: "a.jpg", Kind: domain.MediaImages, Category: domain.CategoryPosts, Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}
