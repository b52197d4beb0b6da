package vectorindex

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

func TestSearchOrdersBySquaredDistanceAndPads(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Add("far", []float32{3, 4}))
	require.NoError(t, ix.Add("near", []float32{1, 0}))

	hits, err := ix.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, float32(1), hits[0].Distance)
	assert.Equal(t, "far", hits[1].ID)
	assert.Equal(t, float32(25), hits[1].Distance)
	assert.Equal(t, NoLabel, hits[2].Label)
	assert.True(t, math.IsInf(float64(hits[2].Distance), 1))
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	ix := New(0)
	require.NoError(t, ix.Add("a", []float32{1, 2, 3}))
	err := ix.Add("b", []float32{1, 2})
	assert.Equal(t, apierr.CodeIndexDimensionMismatch, apierr.CodeOf(err))

	_, err = ix.Search([]float32{1}, 1)
	assert.Equal(t, apierr.CodeIndexDimensionMismatch, apierr.CodeOf(err))
}

func TestFileRoundTrip(t *testing.T) {
	ix := New(3)
	require.NoError(t, ix.Add("NLE-knowledge-aaaa1111", []float32{0.1, 0.2, 0.3}))
	require.NoError(t, ix.Add("NLE-knowledge-bbbb2222", []float32{-1, 0, 1}))

	path := FilePath(t.TempDir(), "NLE")
	assert.Equal(t, "index_nle.exix", filepath.Base(path))
	require.NoError(t, ix.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ix.ids, got.ids)
	assert.Equal(t, ix.vectors, got.vectors)
	assert.Equal(t, 3, got.Dim())
}

func TestReadRejectsCorruptFiles(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Add("x", []float32{1, 2}))
	var buf bytes.Buffer
	_, err := ix.WriteTo(&buf)
	require.NoError(t, err)
	good := buf.Bytes()

	for name, raw := range map[string][]byte{
		"magic":     append([]byte("NOPE"), good[4:]...),
		"truncated": good[:len(good)-3],
		"trailing":  append(append([]byte{}, good...), 0),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(raw))
			assert.Equal(t, apierr.CodeIndexCorrupt, apierr.CodeOf(err))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	ix, err := Load(filepath.Join(t.TempDir(), "none.exix"))
	require.NoError(t, err)
	assert.Nil(t, ix)
}

type fakeEmbedder struct {
	fn    func(text string) ([]float32, error)
	calls atomic.Int32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	return f.fn(text)
}

type staticKnowledge []domain.Chunk

func (s staticKnowledge) Knowledge(context.Context) ([]domain.Chunk, error) { return s, nil }

func chunk(id, content string) domain.Chunk {
	return domain.Chunk{ID: id, Kind: domain.KindKnowledge, Content: content}
}

func TestRebuildWritesIndexInStoreOrder(t *testing.T) {
	emb := &fakeEmbedder{fn: func(text string) ([]float32, error) {
		return []float32{float32(len(text)), 1}, nil
	}}
	path := FilePath(t.TempDir(), "NLE")
	b := NewBuilder(logger.NewNop(), emb)

	ix, err := b.Rebuild(context.Background(), staticKnowledge{chunk("k1", "ab"), chunk("k2", "abcd")}, path)
	require.NoError(t, err)
	require.Equal(t, 2, ix.Len())

	loaded, err := Load(path)
	require.NoError(t, err)
	id, ok := loaded.ID(1)
	require.True(t, ok)
	assert.Equal(t, "k2", id)
}

func TestRebuildWithoutKnowledgeKeepsExistingFile(t *testing.T) {
	path := FilePath(t.TempDir(), "NLE")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	emb := &fakeEmbedder{fn: func(string) ([]float32, error) { return []float32{1}, nil }}
	ix, err := NewBuilder(logger.NewNop(), emb).Rebuild(context.Background(), staticKnowledge{}, path)
	require.NoError(t, err)
	assert.Nil(t, ix)
	assert.Equal(t, int32(0), emb.calls.Load())

	raw, _ := os.ReadFile(path)
	assert.Equal(t, "previous", string(raw))
}

func TestRebuildAbortsOnEmbeddingFailure(t *testing.T) {
	path := FilePath(t.TempDir(), "NLE")
	emb := &fakeEmbedder{fn: func(text string) ([]float32, error) {
		if text == "bad" {
			return nil, errors.New("boom")
		}
		return []float32{1, 2}, nil
	}}
	ce := NewCachingEmbedder(logger.NewNop(), emb, nil, EmbedderConfig{})
	_, err := NewBuilder(logger.NewNop(), ce).Rebuild(context.Background(), staticKnowledge{chunk("a", "ok"), chunk("b", "bad")}, path)
	assert.Equal(t, apierr.CodeEmbeddingFailed, apierr.CodeOf(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

type memCache struct {
	m map[string][]float32
}

func (c *memCache) Get(_ context.Context, model, hash string) ([]float32, bool, error) {
	v, ok := c.m[model+":"+hash]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, model, hash string, vec []float32) error {
	c.m[model+":"+hash] = vec
	return nil
}

func TestCachingEmbedderReusesVectors(t *testing.T) {
	emb := &fakeEmbedder{fn: func(string) ([]float32, error) { return []float32{0.5}, nil }}
	ce := NewCachingEmbedder(logger.NewNop(), emb, &memCache{m: map[string][]float32{}}, EmbedderConfig{Model: "m", RPS: 1000})

	for i := 0; i < 3; i++ {
		vec, err := ce.Embed(context.Background(), "same text")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5}, vec)
	}
	assert.Equal(t, int32(1), emb.calls.Load())
}

func TestCachingEmbedderMapsDeadline(t *testing.T) {
	emb := &fakeEmbedder{fn: func(string) ([]float32, error) { return nil, context.DeadlineExceeded }}
	ce := NewCachingEmbedder(logger.NewNop(), emb, nil, EmbedderConfig{})
	_, err := ce.Embed(context.Background(), "q")
	assert.Equal(t, apierr.CodeServiceTimeout, apierr.CodeOf(err))
}

func TestLoaderCachesUntilFileChanges(t *testing.T) {
	path := FilePath(t.TempDir(), "NLE")
	l := NewLoader()

	ix, err := l.Get(path)
	require.NoError(t, err)
	assert.Nil(t, ix)

	first := New(1)
	require.NoError(t, first.Add("a", []float32{1}))
	require.NoError(t, first.Save(path))

	got1, err := l.Get(path)
	require.NoError(t, err)
	got2, err := l.Get(path)
	require.NoError(t, err)
	assert.Same(t, got1, got2)

	second := New(1)
	require.NoError(t, second.Add("a", []float32{1}))
	require.NoError(t, second.Add("b", []float32{2}))
	require.NoError(t, second.Save(path))
	l.Invalidate(path)

	got3, err := l.Get(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got3.Len())
}
