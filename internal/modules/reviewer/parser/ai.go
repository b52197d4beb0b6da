package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

const (
	DefaultAIThreshold = 800
	DefaultAIModel     = "gpt-4o-mini"

	aiSystemPrompt = "You are a strict JSON formatter."
)

// AIAssisted asks the generation service to structure a long page. It never
// fails: any problem is reported as ok=false so the page stays knowledge.
type AIAssisted struct {
	log       *logger.Logger
	gen       reviewer.Generator
	model     string
	threshold int
	timeout   time.Duration
	topic     string
}

func NewAIAssisted(log *logger.Logger, gen reviewer.Generator, model string, threshold int, timeout time.Duration, topic string) *AIAssisted {
	if strings.TrimSpace(model) == "" {
		model = DefaultAIModel
	}
	if threshold <= 0 {
		threshold = DefaultAIThreshold
	}
	return &AIAssisted{
		log:       log.With("service", "AIAssistedParser"),
		gen:       gen,
		model:     model,
		threshold: threshold,
		timeout:   timeout,
		topic:     topic,
	}
}

func (*AIAssisted) Name() string { return "ai_assisted" }

func (s *AIAssisted) Parse(ctx context.Context, text string) ([]domain.Draft, bool) {
	if s == nil || s.gen == nil {
		return nil, false
	}
	if utf8.RuneCountInString(text) <= s.threshold {
		return nil, false
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	reply, err := s.gen.Complete(callCtx, buildStructurePrompt(text), domain.GenerateOptions{
		Model:       s.model,
		Temperature: 0,
		System:      aiSystemPrompt,
	})
	if err != nil {
		s.log.Warn("AI parse call failed; keeping page as knowledge", "error", err)
		return nil, false
	}

	items, ok := firstJSONArray(reply)
	if !ok {
		s.log.Warn("AI parse reply had no JSON array", "reply_len", len(reply))
		return nil, false
	}
	drafts := s.toDrafts(items)
	if len(drafts) == 0 {
		return nil, false
	}
	return drafts, true
}

func buildStructurePrompt(text string) string {
	return fmt.Sprintf(`You are a parser that converts unstructured licensure exam review text into JSON.
Return a JSON array where each element is either:
- a mock question: { "type": "mock", "question": "...", "options": ["..."], "answer": "...", "topic": "..." }
- or a knowledge passage: { "type": "ask", "content": "...", "topic": "..." }

Input text:
"""%s"""

If no structured items are found return [].`, text)
}

type aiItem struct {
	Type     string          `json:"type"`
	Question string          `json:"question"`
	Options  []any           `json:"options"`
	Answer   json.RawMessage `json:"answer"`
	Content  string          `json:"content"`
	Topic    string          `json:"topic"`
}

// firstJSONArray decodes the first well-formed JSON array of objects found
// in a free-form model reply.
func firstJSONArray(reply string) ([]aiItem, bool) {
	for i := strings.IndexByte(reply, '['); i >= 0; {
		var items []aiItem
		if err := json.NewDecoder(strings.NewReader(reply[i:])).Decode(&items); err == nil {
			return items, true
		}
		next := strings.IndexByte(reply[i+1:], '[')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, false
}

func (s *AIAssisted) toDrafts(items []aiItem) []domain.Draft {
	var out []domain.Draft
	for _, it := range items {
		topic := strings.TrimSpace(it.Topic)
		if topic == "" {
			topic = s.topic
		}
		var (
			d   domain.Draft
			err error
		)
		if kind, _ := domain.ParseKind(it.Type); kind == domain.KindMock {
			d, err = domain.NewMockDraft(it.Question, stringList(it.Options), rawString(it.Answer), topic)
		} else {
			d, err = domain.NewKnowledgeDraft(it.Content, topic)
		}
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func stringList(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		case nil:
		default:
			out = append(out, fmt.Sprint(x))
		}
	}
	return out
}

func rawString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	s = strings.TrimSpace(string(raw))
	return &s
}
