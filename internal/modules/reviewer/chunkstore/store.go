// Package chunkstore persists deduplicated chunks as one JSON array per exam
// type.
package chunkstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/fsutil"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type Store struct {
	log          *logger.Logger
	path         string
	examType     string
	defaultTopic string
}

// New returns the store for one exam type under dir. examType must already
// be normalized (see domain.NormalizeExamType).
func New(log *logger.Logger, dir, examType, defaultTopic string) *Store {
	if examType == "" {
		examType = domain.DefaultExamType
	}
	if defaultTopic == "" {
		defaultTopic = domain.DefaultTopic
	}
	return &Store{
		log:          log.With("service", "ChunkStore", "exam_type", examType),
		path:         FilePath(dir, examType),
		examType:     examType,
		defaultTopic: defaultTopic,
	}
}

// FilePath is <dir>/chunks_<exam lowercased>.json.
func FilePath(dir, examType string) string {
	return filepath.Join(dir, "chunks_"+strings.ToLower(examType)+".json")
}

func (s *Store) Path() string     { return s.path }
func (s *Store) ExamType() string { return s.examType }

func (s *Store) Load(ctx context.Context) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock, err := fsutil.LockPath(s.path)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeStoreCorrupt, err)
	}
	defer unlock()
	return s.load()
}

func (s *Store) load() ([]domain.Chunk, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeStoreCorrupt, fmt.Errorf("read %s: %w", s.path, err))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, apierr.Wrap(apierr.CodeStoreCorrupt, fmt.Errorf("decode %s: %w", s.path, err))
	}
	return chunks, nil
}

func (s *Store) Knowledge(ctx context.Context) ([]domain.Chunk, error) {
	return s.filter(ctx, domain.KindKnowledge)
}

func (s *Store) Mocks(ctx context.Context) ([]domain.Chunk, error) {
	return s.filter(ctx, domain.KindMock)
}

func (s *Store) filter(ctx context.Context, kind domain.Kind) ([]domain.Chunk, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Chunk
	for _, c := range all {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

// ByID indexes every stored chunk by id.
func (s *Store) ByID(ctx context.Context) (map[string]domain.Chunk, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Chunk, len(all))
	for _, c := range all {
		out[c.ID] = c
	}
	return out, nil
}

// DedupeAndAppend adds the drafts whose content hash is not yet stored and
// returns how many were added.
func (s *Store) DedupeAndAppend(ctx context.Context, drafts []domain.Draft) (int, error) {
	added, err := s.Append(ctx, drafts)
	return len(added), err
}

// Append is DedupeAndAppend returning the added chunks themselves. The file
// is rewritten only when something was added.
func (s *Store) Append(ctx context.Context, drafts []domain.Draft) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock, err := fsutil.LockPath(s.path)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeStoreCorrupt, err)
	}
	defer unlock()

	existing, err := s.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(existing)+len(drafts))
	for _, c := range existing {
		h := c.Hash
		if h == "" {
			h = domain.ContentHash(c.CanonicalContent())
		}
		seen[h] = struct{}{}
	}

	var added []domain.Chunk
	for _, d := range drafts {
		c := d.Chunk(s.examType, s.defaultTopic)
		if _, dup := seen[c.Hash]; dup {
			continue
		}
		seen[c.Hash] = struct{}{}
		added = append(added, c)
	}
	if len(added) == 0 {
		s.log.Debug("no new chunks", "drafts", len(drafts))
		return nil, nil
	}

	all := append(existing, added...)
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeStoreWriteFailed, fmt.Errorf("encode chunks: %w", err))
	}
	if err := fsutil.WriteFileAtomic(s.path, raw, 0o644); err != nil {
		return nil, apierr.Wrap(apierr.CodeStoreWriteFailed, err)
	}

	s.log.Info("chunks appended", "drafts", len(drafts), "added", len(added), "total", len(all))
	return added, nil
}
