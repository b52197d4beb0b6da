package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashIsDeterministicAndSensitive(t *testing.T) {
	a := ContentHash("What color is the sky?")
	b := ContentHash("What color is the sky?")
	c := ContentHash("What color is the sky!")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestDraftChunkAssignsDeterministicID(t *testing.T) {
	d, err := NewMockDraft("  What color is the sky? ", []string{"Red", "Blue"}, nil, "")
	require.NoError(t, err)

	c1 := d.Chunk("NLE", "")
	c2 := d.Chunk("NLE", "")
	assert.Equal(t, c1.ID, c2.ID)
	assert.Equal(t, "NLE-mock-"+c1.Hash[:8], c1.ID)
	assert.Equal(t, DefaultTopic, c1.Topic)
	assert.Nil(t, c1.Answer)
}

func TestDraftConstructorsRejectEmptyContent(t *testing.T) {
	_, err := NewMockDraft("   ", nil, nil, "")
	assert.ErrorIs(t, err, ErrEmptyDraft)
	_, err = NewKnowledgeDraft("\n\t", "")
	assert.ErrorIs(t, err, ErrEmptyDraft)
}

func TestBlankAnswerBecomesNil(t *testing.T) {
	blank := "  "
	d, err := NewMockDraft("Q?", []string{"a"}, &blank, "")
	require.NoError(t, err)
	assert.Nil(t, d.Answer())
}

func TestChunkJSONShapes(t *testing.T) {
	mock, err := NewMockDraft("Q?", []string{"A1", "B1"}, nil, "Pharmacology")
	require.NoError(t, err)
	raw, err := json.Marshal(mock.Chunk("NLE", ""))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "mock", m["type"])
	assert.Contains(t, m, "answer")
	assert.Nil(t, m["answer"])
	assert.NotContains(t, m, "content")

	know, err := NewKnowledgeDraft("Body text", "")
	require.NoError(t, err)
	raw, err = json.Marshal(know.Chunk("NLE", ""))
	require.NoError(t, err)
	m = map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "knowledge", m["type"])
	assert.NotContains(t, m, "question")
}

func TestLegacyAskKindDecodesAsKnowledge(t *testing.T) {
	var c Chunk
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ask","content":"x","hash":"h"}`), &c))
	assert.Equal(t, KindKnowledge, c.Kind)

	var bad Chunk
	assert.Error(t, json.Unmarshal([]byte(`{"type":"essay"}`), &bad))
}

func TestChunkTextRendersOptions(t *testing.T) {
	c := Chunk{Kind: KindMock, Question: "Q?", Options: []string{"x", "y"}}
	assert.Equal(t, "Q?\nA. x\nB. y", c.Text())
}

func TestNormalizeExamType(t *testing.T) {
	got, ok := NormalizeExamType(" mtle ")
	assert.True(t, ok)
	assert.Equal(t, "MTLE", got)

	got, ok = NormalizeExamType("")
	assert.True(t, ok)
	assert.Equal(t, DefaultExamType, got)

	_, ok = NormalizeExamType("../etc")
	assert.False(t, ok)
}
