package parser

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/extractor"
)

// Strategy recognizes drafts in one page of text. ok is false when the
// strategy found nothing and the next one should be tried.
type Strategy interface {
	Name() string
	Parse(ctx context.Context, text string) (drafts []domain.Draft, ok bool)
}

var (
	numberedQuestionRe = regexp.MustCompile(`^(\d+)\.\s+(.*)`)
	numberedOptionRe   = regexp.MustCompile(`^([A-Da-d])[.)]\s*(.*)`)
	numberedAnswerRe   = regexp.MustCompile(`^(?i:answer|ans)[:\s]+(.+)`)
)

// NumberedMCQ reads line-based items:
//
//	1. Question text
//	A. option
//	B) option
//	Answer: B
type NumberedMCQ struct {
	Topic string
}

func (NumberedMCQ) Name() string { return "numbered_mcq" }

func (s NumberedMCQ) Parse(_ context.Context, text string) ([]domain.Draft, bool) {
	type item struct {
		question string
		options  []string
		answer   *string
	}

	var (
		items   []*item
		current *item
	)
	for _, raw := range strings.Split(extractor.NormalizeWhitespace(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := numberedQuestionRe.FindStringSubmatch(line); m != nil {
			current = &item{question: strings.TrimSpace(m[2])}
			items = append(items, current)
			continue
		}
		if current == nil {
			continue
		}
		if m := numberedOptionRe.FindStringSubmatch(line); m != nil {
			current.options = append(current.options, strings.TrimSpace(m[2]))
			continue
		}
		if m := numberedAnswerRe.FindStringSubmatch(line); m != nil {
			a := strings.TrimSpace(m[1])
			current.answer = &a
			continue
		}
		// stem continuation; text after the options is commentary
		if len(current.options) == 0 {
			current.question += " " + line
		}
	}

	var out []domain.Draft
	for _, it := range items {
		d, err := domain.NewMockDraft(it.question, it.options, it.answer, s.Topic)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, len(out) > 0
}

var inlineMCQRe = regexp.MustCompile(`(?s)(?P<q>\S[^\n]*?)\s+A[.)]\s*(?P<a>.+?)\s+B[.)]\s*(?P<b>.+?)\s+C[.)]\s*(?P<c>.+?)\s+D[.)]\s*(?P<d>.+?)\s*(?:\(?\s*(?i:answer|ans)\s*[:\s]\s*(?P<ans>[A-Da-d])\b\s*\)?|\n|$)`)

// InlineMCQ matches items written on one run of text:
//
//	What is X? A. one B. two C. three D. four (Answer: B)
type InlineMCQ struct {
	Topic string
}

func (InlineMCQ) Name() string { return "inline_mcq" }

func (s InlineMCQ) Parse(_ context.Context, text string) ([]domain.Draft, bool) {
	var out []domain.Draft
	for _, it := range scanInline(extractor.NormalizeWhitespace(text)) {
		d, err := domain.NewMockDraft(it.question, it.options, it.answer, s.Topic)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, len(out) > 0
}

type inlineItem struct {
	question string
	options  []string
	answer   *string
}

// scanInline walks body match by match. Option D is lazy up to the end of
// the line, so when unanswered items share a line the next item lands in
// D; that run-on is cut where the next stem starts and scanning resumes
// there.
func scanInline(body string) []inlineItem {
	var (
		out []inlineItem
		pos int
	)
	span := func(m []int, name string) (int, int) {
		i := inlineMCQRe.SubexpIndex(name)
		return m[2*i], m[2*i+1]
	}
	for pos < len(body) {
		m := inlineMCQRe.FindStringSubmatchIndex(body[pos:])
		if m == nil {
			break
		}
		group := func(name string) string {
			st, en := span(m, name)
			if st < 0 {
				return ""
			}
			return strings.TrimSpace(body[pos+st : pos+en])
		}
		it := inlineItem{
			question: group("q"),
			options:  []string{group("a"), group("b"), group("c"), group("d")},
		}

		dStart, dEnd := span(m, "d")
		dStart, dEnd = pos+dStart, pos+dEnd
		if cut := nextStemInOption(body[dStart:], dEnd-dStart); cut > 0 {
			it.options[3] = strings.TrimSpace(body[dStart : dStart+cut])
			out = append(out, it)
			pos = dStart + cut
			continue
		}

		if a := group("ans"); a != "" {
			it.answer = &a
		}
		out = append(out, it)
		pos += m[1]
	}
	return out
}

// nextStemInOption reports the offset inside rest where another inline item
// begins, provided its stem starts within the first dLen bytes (the matched
// option D). Zero means option D holds no run-on item.
func nextStemInOption(rest string, dLen int) int {
	m := inlineMCQRe.FindStringSubmatchIndex(rest)
	if m == nil {
		return 0
	}
	qi := inlineMCQRe.SubexpIndex("q")
	qs, qe := m[2*qi], m[2*qi+1]
	if qe > dLen {
		return 0
	}
	cut := stemStart(rest[qs:qe])
	if cut <= 0 {
		return 0
	}
	return qs + cut
}

// stemStart picks where a question stem begins in "<option D> <stem>": the
// first word after the leading one that opens with a capital letter or a
// digit. -1 when there is no such word.
func stemStart(s string) int {
	first := true
	for i := 0; i < len(s); {
		for i < len(s) && unicode.IsSpace(rune(s[i])) {
			i++
		}
		if i >= len(s) {
			break
		}
		start := i
		for i < len(s) && !unicode.IsSpace(rune(s[i])) {
			i++
		}
		if first {
			first = false
			continue
		}
		r, _ := utf8.DecodeRuneInString(s[start:])
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			return start
		}
	}
	return -1
}

// Knowledge keeps the whole page as one knowledge draft.
type Knowledge struct {
	Topic string
}

func (Knowledge) Name() string { return "knowledge" }

func (s Knowledge) Parse(_ context.Context, text string) ([]domain.Draft, bool) {
	d, err := domain.NewKnowledgeDraft(extractor.NormalizeWhitespace(text), s.Topic)
	if err != nil {
		return nil, false
	}
	return []domain.Draft{d}, true
}
