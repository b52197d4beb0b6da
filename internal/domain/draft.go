package domain

import (
	"errors"
	"strings"
)

var ErrEmptyDraft = errors.New("draft has no canonical content")

// Draft is an unsaved chunk produced by the parser. Build it with
// NewMockDraft or NewKnowledgeDraft.
type Draft struct {
	kind     Kind
	question string
	options  []string
	answer   *string
	content  string
	topic    string
}

func NewMockDraft(question string, options []string, answer *string, topic string) (Draft, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return Draft{}, ErrEmptyDraft
	}
	opts := make([]string, 0, len(options))
	for _, o := range options {
		opts = append(opts, strings.TrimSpace(o))
	}
	var ans *string
	if answer != nil {
		if a := strings.TrimSpace(*answer); a != "" {
			ans = &a
		}
	}
	return Draft{kind: KindMock, question: q, options: opts, answer: ans, topic: strings.TrimSpace(topic)}, nil
}

func NewKnowledgeDraft(content string, topic string) (Draft, error) {
	c := strings.TrimSpace(content)
	if c == "" {
		return Draft{}, ErrEmptyDraft
	}
	return Draft{kind: KindKnowledge, content: c, topic: strings.TrimSpace(topic)}, nil
}

func (d Draft) Kind() Kind        { return d.kind }
func (d Draft) Question() string  { return d.question }
func (d Draft) Options() []string { return append([]string(nil), d.options...) }
func (d Draft) Content() string   { return d.content }
func (d Draft) Topic() string     { return d.topic }

func (d Draft) Answer() *string {
	if d.answer == nil {
		return nil
	}
	a := *d.answer
	return &a
}

func (d Draft) CanonicalContent() string {
	if d.kind == KindMock {
		return d.question
	}
	return d.content
}

// Chunk materializes the draft with its content hash and deterministic id.
// Empty examType and topic fall back to the package defaults.
func (d Draft) Chunk(examType, defaultTopic string) Chunk {
	if examType == "" {
		examType = DefaultExamType
	}
	topic := d.topic
	if topic == "" {
		topic = defaultTopic
	}
	if topic == "" {
		topic = DefaultTopic
	}
	hash := ContentHash(d.CanonicalContent())
	return Chunk{
		ID:       ChunkID(examType, d.kind, hash),
		Kind:     d.kind,
		Hash:     hash,
		ExamType: examType,
		Topic:    topic,
		Question: d.question,
		Options:  d.Options(),
		Answer:   d.Answer(),
		Content:  d.content,
	}
}
