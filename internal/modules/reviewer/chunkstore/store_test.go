package chunkstore

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

func mock(t *testing.T, q string) domain.Draft {
	t.Helper()
	ans := "A"
	d, err := domain.NewMockDraft(q, []string{"yes", "no"}, &ans, "")
	require.NoError(t, err)
	return d
}

func knowledge(t *testing.T, body string) domain.Draft {
	t.Helper()
	d, err := domain.NewKnowledgeDraft(body, "")
	require.NoError(t, err)
	return d
}

func TestDedupeAndAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(logger.NewNop(), t.TempDir(), "NLE", "")
	drafts := []domain.Draft{mock(t, "Q1?"), knowledge(t, "Platelets aid clotting.")}

	n, err := s.DedupeAndAppend(ctx, drafts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.DedupeAndAppend(ctx, drafts)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	all, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "NLE-mock-"+domain.ContentHash("Q1?")[:8], all[0].ID)
	assert.Equal(t, domain.DefaultTopic, all[0].Topic)
	assert.Equal(t, "NLE", all[1].ExamType)
}

func TestDedupeAndAppendCollapsesInBatchDuplicates(t *testing.T) {
	s := New(logger.NewNop(), t.TempDir(), "NLE", "")
	n, err := s.DedupeAndAppend(context.Background(), []domain.Draft{
		knowledge(t, "same"), knowledge(t, "same"), mock(t, "same"),
	})
	require.NoError(t, err)
	// a mock and a knowledge chunk with equal canonical text share a hash
	assert.Equal(t, 1, n)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := New(logger.NewNop(), t.TempDir(), "MTLE", "")
	all, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, "chunks_mtle.json", filepath.Base(s.Path()))
}

func TestCorruptFileIsNotReplaced(t *testing.T) {
	dir := t.TempDir()
	s := New(logger.NewNop(), dir, "NLE", "")
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := s.DedupeAndAppend(context.Background(), []domain.Draft{knowledge(t, "x")})
	assert.Equal(t, apierr.CodeStoreCorrupt, apierr.CodeOf(err))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))
}

func TestLegacyAskChunksAreKnowledge(t *testing.T) {
	dir := t.TempDir()
	s := New(logger.NewNop(), dir, "NLE", "")
	legacy := `[{"id":"NLE-ask-1234abcd","type":"ask","content":"Legacy passage","exam_type":"NLE","topic":"General Nursing"},
{"id":"NLE-mock-aaaa0000","type":"mock","question":"Old?","options":["a"],"answer":null,"hash":"h1"}]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(legacy), 0o644))

	k, err := s.Knowledge(context.Background())
	require.NoError(t, err)
	require.Len(t, k, 1)
	assert.Equal(t, "Legacy passage", k[0].Content)

	m, err := s.Mocks(context.Background())
	require.NoError(t, err)
	require.Len(t, m, 1)

	// a legacy chunk without a stored hash still deduplicates
	n, err := s.DedupeAndAppend(context.Background(), []domain.Draft{knowledge(t, "Legacy passage")})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConcurrentAppendsKeepEveryChunk(t *testing.T) {
	dir := t.TempDir()
	drafts := make([]domain.Draft, 8)
	for i := range drafts {
		drafts[i] = knowledge(t, string(rune('a'+i))+" passage")
	}
	var wg sync.WaitGroup
	for _, d := range drafts {
		wg.Add(1)
		go func(d domain.Draft) {
			defer wg.Done()
			s := New(logger.NewNop(), dir, "NLE", "")
			_, err := s.DedupeAndAppend(context.Background(), []domain.Draft{d})
			assert.NoError(t, err)
		}(d)
	}
	wg.Wait()

	all, err := New(logger.NewNop(), dir, "NLE", "").Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 8)
}

const (
	storeChildDirEnv = "CHUNKSTORE_CHILD_DIR"
	storeChildIDEnv  = "CHUNKSTORE_CHILD_ID"
)

func TestAppendFromSeveralProcessesKeepsEveryChunk(t *testing.T) {
	const (
		procs = 4
		runs  = 25
	)
	if dir := os.Getenv(storeChildDirEnv); dir != "" {
		id := os.Getenv(storeChildIDEnv)
		s := New(logger.NewNop(), dir, "NLE", "")
		for i := 0; i < runs; i++ {
			n, err := s.DedupeAndAppend(context.Background(), []domain.Draft{
				knowledge(t, fmt.Sprintf("process %s note %d", id, i)),
			})
			require.NoError(t, err)
			require.Equal(t, 1, n)
		}
		return
	}

	dir := t.TempDir()
	cmds := make([]*exec.Cmd, 0, procs)
	for i := 0; i < procs; i++ {
		cmd := exec.Command(os.Args[0], "-test.run=^TestAppendFromSeveralProcessesKeepsEveryChunk$")
		cmd.Env = append(os.Environ(), storeChildDirEnv+"="+dir, fmt.Sprintf("%s=%d", storeChildIDEnv, i))
		require.NoError(t, cmd.Start())
		cmds = append(cmds, cmd)
	}
	for _, cmd := range cmds {
		require.NoError(t, cmd.Wait())
	}

	all, err := New(logger.NewNop(), dir, "NLE", "").Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, procs*runs)
}
