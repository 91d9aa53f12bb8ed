package privacy

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
)

// indicatorCategory identifies which lexical table a matched term came from.
// The personal categories drive the contextual/personal graduation; health and
// financial matches short-circuit to the sensitive level.
type indicatorCategory int

const (
	categoryPronoun indicatorCategory = iota
	categoryPersonalVerb
	categoryTemporal
	categoryFamily
	categoryLocation
	categoryHealth
	categoryFinancial
)

func (c indicatorCategory) isPersonal() bool {
	switch c {
	case categoryPronoun, categoryPersonalVerb, categoryTemporal, categoryFamily:
		return true
	}
	return false
}

func (c indicatorCategory) isSensitive() bool {
	return c == categoryHealth || c == categoryFinancial
}

var pronounTerms = []string{
	"i", "me", "my", "mine", "myself",
	"we", "us", "our", "ours",
}

var personalVerbTerms = []string{
	"remember", "recall", "experienced", "believe", "felt",
	"visited", "attended", "promised", "decided", "realized",
}

var temporalPersonalTerms = []string{
	"yesterday", "today", "tonight", "tomorrow",
	"last week", "last month", "last night", "this morning", "this weekend",
	"my schedule", "my calendar", "my appointment", "my plans",
}

var familyTerms = []string{
	"mom", "dad", "mother", "father", "parents",
	"spouse", "wife", "husband", "partner",
	"sister", "brother", "sibling", "son", "daughter", "kids",
	"grandma", "grandpa", "grandmother", "grandfather",
	"aunt", "uncle", "cousin", "family",
}

// locationTerms matter only for redaction; they never change the level.
var locationTerms = []string{
	"home", "house", "apartment", "address", "neighborhood",
	"office", "workplace", "school",
}

var healthTerms = []string{
	"blood pressure", "heart rate", "doctor", "physician", "clinic",
	"medication", "prescription", "diagnosis", "symptom", "symptoms",
	"therapy", "therapist", "surgery", "hospital", "allergy", "allergies",
	"insulin", "cholesterol", "anxiety", "depression", "migraine",
	"medical", "illness", "disease",
}

var financialTerms = []string{
	"salary", "income", "paycheck", "bank account", "bank balance",
	"mortgage", "loan", "debt", "credit card", "credit score",
	"taxes", "tax return", "investment", "investments", "savings",
	"retirement account", "net worth",
}

// lexicon is a single automaton over every indicator table, with a
// per-pattern record of the source category and canonical term.
type lexicon struct {
	ac         *ahocorasick.Automaton
	categories []indicatorCategory
	terms      []string
}

func newLexicon() (*lexicon, error) {
	lex := &lexicon{}

	add := func(terms []string, cat indicatorCategory) {
		for _, t := range terms {
			lex.terms = append(lex.terms, t)
			lex.categories = append(lex.categories, cat)
		}
	}
	add(pronounTerms, categoryPronoun)
	add(personalVerbTerms, categoryPersonalVerb)
	add(temporalPersonalTerms, categoryTemporal)
	add(familyTerms, categoryFamily)
	add(locationTerms, categoryLocation)
	add(healthTerms, categoryHealth)
	add(financialTerms, categoryFinancial)

	ac, err := ahocorasick.NewBuilder().
		AddStrings(lex.terms).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("privacy: failed to build indicator automaton: %w", err)
	}
	lex.ac = ac
	return lex, nil
}

// termMatch is a whole-word indicator hit mapped back to the original text.
type termMatch struct {
	Category indicatorCategory
	Term     string // canonical pattern text
	Start    int    // byte offset in original text
	End      int
}

// scan finds every whole-word indicator occurrence in text. Matching runs
// over a canonicalized copy; offsets are mapped back to the original so a
// caller can redact in place.
func (l *lexicon) scan(text string) []termMatch {
	canon, offsets := canonicalize(text)
	haystack := []byte(canon)

	var out []termMatch
	for _, m := range l.ac.FindAllOverlapping(haystack) {
		if !wholeWord(canon, m.Start, m.End) {
			continue
		}
		origStart := mapOffset(m.Start, offsets, len(text))
		origEnd := mapOffset(m.End, offsets, len(text))
		if origStart >= origEnd || origEnd > len(text) {
			continue
		}
		out = append(out, termMatch{
			Category: l.categories[m.PatternID],
			Term:     l.terms[m.PatternID],
			Start:    origStart,
			End:      origEnd,
		})
	}
	slices.SortFunc(out, func(a, b termMatch) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return b.End - a.End // longest first at equal start
	})
	return out
}

// wholeWord checks that the match is not embedded inside a longer token.
// "i" must not fire inside "it", nor "loan" inside "sloane". An apostrophe
// counts as a boundary so possessive and contracted forms ("doctor's",
// "i'm") still match the base term.
func wholeWord(canon string, start, end int) bool {
	if start > 0 && !boundaryByte(canon[start-1]) {
		return false
	}
	if end < len(canon) && !boundaryByte(canon[end]) {
		return false
	}
	return true
}

func boundaryByte(b byte) bool {
	return b == ' ' || b == '\''
}

// canonicalize lowercases text, keeps letters and digits, collapses every
// separator run into a single space, and records for each canonical byte the
// originating byte offset in the input.
func canonicalize(text string) (string, []int) {
	var out strings.Builder
	out.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)

	lastWasSpace := true
	pos := 0
	for _, r := range text {
		w := utf8.RuneLen(r)
		c := unicode.ToLower(r)
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' {
			cw := utf8.RuneLen(c)
			out.WriteRune(c)
			for i := 0; i < cw; i++ {
				offsets = append(offsets, pos)
			}
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteByte(' ')
			offsets = append(offsets, pos)
			lastWasSpace = true
		}
		pos += w
	}
	offsets = append(offsets, pos)

	canon := out.String()
	if len(canon) > 0 && canon[len(canon)-1] == ' ' {
		canon = canon[:len(canon)-1]
	}
	return canon, offsets
}

func mapOffset(canonOffset int, offsets []int, originalLen int) int {
	if canonOffset < 0 {
		return 0
	}
	if canonOffset >= len(offsets) {
		return originalLen
	}
	return offsets[canonOffset]
}
