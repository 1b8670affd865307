package blob

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalPut_RejectsOversizedPayload(t *testing.T) {
	local, err := NewLocal(LocalConfig{BasePath: t.TempDir()}, discardLogger())
	require.NoError(t, err)

	err = local.Put(context.Background(), "vaults/a/photo", strings.NewReader("abcdef"), PutOptions{
		MaxSize:   5,
		Overwrite: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)

	exists, err := local.Exists(context.Background(), "vaults/a/photo")
	require.NoError(t, err)
	assert.False(t, exists, "a rejected put must not leave a partial object")
}

func TestS3Put_RejectsOversizedPayload(t *testing.T) {
	// The size backstop trips before any request is issued, so no client
	// is needed. Overwrite skips the existence probe.
	store := &S3{bucketName: "vault-media", logger: discardLogger()}

	err := store.Put(context.Background(), "vaults/a/photo", strings.NewReader("abcdef"), PutOptions{
		MaxSize:   5,
		Overwrite: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLocalPut_AtLimitSucceeds(t *testing.T) {
	local, err := NewLocal(LocalConfig{BasePath: t.TempDir()}, discardLogger())
	require.NoError(t, err)

	err = local.Put(context.Background(), "vaults/a/photo", strings.NewReader("abcde"), PutOptions{
		MaxSize:   5,
		Overwrite: true,
	})
	require.NoError(t, err)

	exists, err := local.Exists(context.Background(), "vaults/a/photo")
	require.NoError(t, err)
	assert.True(t, exists)
}
