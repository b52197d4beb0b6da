package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type Kind string

const (
	KindMock      Kind = "mock"
	KindKnowledge Kind = "knowledge"

	// kindAsk is the name older chunk files and the AI parser use for
	// knowledge passages.
	kindAsk = "ask"
)

const (
	DefaultExamType = "NLE"
	DefaultTopic    = "General Nursing"
)

var examTypeRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,31}$`)

// NormalizeExamType upper-cases an exam type and applies the default. ok is
// false for names unsafe to use in ids and file names.
func NormalizeExamType(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return DefaultExamType, true
	}
	if !examTypeRe.MatchString(t) {
		return "", false
	}
	return strings.ToUpper(t), true
}

func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindMock):
		return KindMock, true
	case string(KindKnowledge), kindAsk:
		return KindKnowledge, true
	default:
		return "", false
	}
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, ok := ParseKind(s)
	if !ok {
		return fmt.Errorf("unknown chunk type %q", s)
	}
	*k = parsed
	return nil
}

// Chunk is one persisted unit of exam content.
type Chunk struct {
	ID       string
	Kind     Kind
	Hash     string
	ExamType string
	Topic    string

	// mock
	Question string
	Options  []string
	Answer   *string

	// knowledge
	Content string
}

// CanonicalContent is the text hashed for deduplication.
func (c Chunk) CanonicalContent() string {
	if c.Kind == KindMock {
		return c.Question
	}
	return c.Content
}

// Text is what gets shown to the generation service as context.
func (c Chunk) Text() string {
	if c.Kind == KindKnowledge {
		return c.Content
	}
	var b strings.Builder
	b.WriteString(c.Question)
	for i, opt := range c.Options {
		fmt.Fprintf(&b, "\n%c. %s", 'A'+rune(i), opt)
	}
	return b.String()
}

func ContentHash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// ChunkID is "<exam>-<kind>-<first 8 hex of hash>".
func ChunkID(examType string, kind Kind, hash string) string {
	short := hash
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s-%s", examType, kind, short)
}

type mockJSON struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"type"`
	Hash     string   `json:"hash"`
	ExamType string   `json:"exam_type"`
	Topic    string   `json:"topic"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   *string  `json:"answer"`
}

type knowledgeJSON struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"type"`
	Hash     string `json:"hash"`
	ExamType string `json:"exam_type"`
	Topic    string `json:"topic"`
	Content  string `json:"content"`
}

func (c Chunk) MarshalJSON() ([]byte, error) {
	if c.Kind == KindMock {
		opts := c.Options
		if opts == nil {
			opts = []string{}
		}
		return json.Marshal(mockJSON{
			ID: c.ID, Kind: c.Kind, Hash: c.Hash, ExamType: c.ExamType, Topic: c.Topic,
			Question: c.Question, Options: opts, Answer: c.Answer,
		})
	}
	return json.Marshal(knowledgeJSON{
		ID: c.ID, Kind: KindKnowledge, Hash: c.Hash, ExamType: c.ExamType, Topic: c.Topic,
		Content: c.Content,
	})
}

func (c *Chunk) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string   `json:"id"`
		Kind     Kind     `json:"type"`
		Hash     string   `json:"hash"`
		ExamType string   `json:"exam_type"`
		Topic    string   `json:"topic"`
		Question string   `json:"question"`
		Options  []string `json:"options"`
		Answer   *string  `json:"answer"`
		Content  string   `json:"content"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Kind == "" {
		raw.Kind = KindKnowledge
	}
	*c = Chunk{
		ID: raw.ID, Kind: raw.Kind, Hash: raw.Hash, ExamType: raw.ExamType, Topic: raw.Topic,
		Question: raw.Question, Options: raw.Options, Answer: raw.Answer, Content: raw.Content,
	}
	return nil
}
