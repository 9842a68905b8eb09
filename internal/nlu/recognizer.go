// Package nlu is a small keyword recognizer backing the chat REPL and
// tests. It matches intent examples by token overlap and extracts
// entities from enumerated phrases, declared patterns, and a few builtin
// kinds (numbers, ISO dates, clock times). Production deployments are
// expected to call the engine with the output of a real NLU service
// instead.
package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
)

var (
	tokenPattern  = regexp.MustCompile(`[a-z0-9]+`)
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	datePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	timePattern   = regexp.MustCompile(`\b([01]?\d|2[0-3]):[0-5]\d\b`)
)

type enumPhrase struct {
	value  string
	phrase string
}

type pattern struct {
	re *regexp.Regexp
}

// Recognizer derives turn inputs from raw text using the declarations of
// a bot definition.
type Recognizer struct {
	intents  map[string][][]string // intent -> tokenized examples
	enums    map[string][]enumPhrase
	patterns map[string][]pattern
	clock    func() time.Time
}

// New builds a Recognizer from the definition's intents and entities.
func New(def *schema.Definition) (*Recognizer, error) {
	r := &Recognizer{
		intents:  make(map[string][][]string),
		enums:    make(map[string][]enumPhrase),
		patterns: make(map[string][]pattern),
		clock:    time.Now,
	}

	for _, intent := range def.Intents {
		for _, example := range intent.Examples {
			r.intents[intent.Name] = append(r.intents[intent.Name], tokenize(example))
		}
	}

	for _, entity := range def.Entities {
		for _, value := range entity.Values {
			phrases := value.Phrases
			if len(phrases) == 0 {
				phrases = []string{value.Name}
			}
			for _, phrase := range phrases {
				r.enums[entity.Name] = append(r.enums[entity.Name], enumPhrase{
					value:  value.Name,
					phrase: strings.ToLower(phrase),
				})
			}
		}
		for _, p := range entity.Patterns {
			re, err := regexp.Compile(p.Regexp)
			if err != nil {
				return nil, fmt.Errorf("entity %q pattern %q: %w", entity.Name, p.Name, err)
			}
			r.patterns[entity.Name] = append(r.patterns[entity.Name], pattern{re: re})
		}
	}

	return r, nil
}

// Recognize extracts intents and entities from one utterance.
func (r *Recognizer) Recognize(text string) (domain.Intents, domain.Entities) {
	lower := strings.ToLower(text)
	tokens := tokenize(text)

	intents := make(domain.Intents)
	for name, examples := range r.intents {
		for _, example := range examples {
			if overlaps(tokens, example) {
				intents[name] = true
				break
			}
		}
	}

	entities := make(domain.Entities)
	for name, phrases := range r.enums {
		for _, ep := range phrases {
			if containsPhrase(lower, ep.phrase) {
				entities[name] = append(entities[name], domain.EntityMatch{
					Literal: ep.phrase,
					Kind:    domain.KindEnum,
					Value:   ep.value,
				})
			}
		}
	}
	for name, pats := range r.patterns {
		for _, p := range pats {
			for _, m := range p.re.FindAllString(text, -1) {
				entities[name] = append(entities[name], domain.EntityMatch{
					Literal: m,
					Kind:    domain.KindRegex,
					Value:   m,
				})
			}
		}
	}

	r.builtins(text, lower, entities)
	return intents, entities
}

// builtins extracts numbers, dates and clock times regardless of the
// definition, mirroring what system entities of an NLU service provide.
func (r *Recognizer) builtins(text, lower string, entities domain.Entities) {
	dateLiterals := map[string]bool{}
	for _, m := range datePattern.FindAllString(text, -1) {
		dateLiterals[m] = true
		entities["date"] = append(entities["date"], domain.EntityMatch{
			Literal: m,
			Kind:    domain.KindDate,
			Value:   m,
		})
	}
	today := r.clock()
	if containsPhrase(lower, "today") {
		entities["date"] = append(entities["date"], domain.EntityMatch{
			Literal: "today",
			Kind:    domain.KindDate,
			Value:   today.Format("2006-01-02"),
		})
	}
	if containsPhrase(lower, "tomorrow") {
		entities["date"] = append(entities["date"], domain.EntityMatch{
			Literal: "tomorrow",
			Kind:    domain.KindDate,
			Value:   today.AddDate(0, 0, 1).Format("2006-01-02"),
		})
	}

	timeLiterals := map[string]bool{}
	for _, m := range timePattern.FindAllString(text, -1) {
		timeLiterals[m] = true
		entities["time"] = append(entities["time"], domain.EntityMatch{
			Literal: m,
			Kind:    domain.KindTime,
			Value:   m,
		})
	}

	for _, m := range numberPattern.FindAllString(text, -1) {
		// Digits already claimed by a date or time are not numbers.
		if partOfAny(m, dateLiterals) || partOfAny(m, timeLiterals) {
			continue
		}
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		entities["number"] = append(entities["number"], domain.EntityMatch{
			Literal: m,
			Kind:    domain.KindNumber,
			Value:   n,
		})
	}
}

func tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// overlaps reports whether every example token occurs in the utterance.
func overlaps(tokens, example []string) bool {
	if len(example) == 0 {
		return false
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, t := range example {
		if !set[t] {
			return false
		}
	}
	return true
}

// containsPhrase matches a phrase on word boundaries.
func containsPhrase(lower, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		if boundary(lower, start-1) && boundary(lower, end) {
			return true
		}
		idx = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}

func partOfAny(m string, literals map[string]bool) bool {
	for lit := range literals {
		if strings.Contains(lit, m) {
			return true
		}
	}
	return false
}
