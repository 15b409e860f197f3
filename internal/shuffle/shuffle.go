package shuffle

import (
	"math/rand"

	"github.com/pKa1/eg2/internal/models"
)

// Map holds the fixed-for-the-session display order of option ids per
// question id. It is generated exactly once when a session becomes active and
// never recomputed, so matching/ordering answers entered against it stay
// valid for the whole attempt.
type Map map[int64][]int64

// Generator produces unbiased permutations from an injected source, so tests
// can seed it deterministically.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Build computes the shuffle map for every matching and ordering question.
// Matching questions shuffle only their right-hand options (those with
// display text); ordering questions shuffle the full option list to hide the
// authored order.
func (g *Generator) Build(questions []models.Question) Map {
	m := make(Map)
	for i := range questions {
		q := &questions[i]
		switch q.Type {
		case models.Matching:
			ids := make([]int64, 0, len(q.Options))
			for _, opt := range q.Options {
				if opt.Text == "" {
					continue
				}
				ids = append(ids, opt.ID)
			}
			m[q.ID] = g.permute(ids)
		case models.Ordering:
			ids := make([]int64, 0, len(q.Options))
			for _, opt := range q.Options {
				ids = append(ids, opt.ID)
			}
			m[q.ID] = g.permute(ids)
		}
	}
	return m
}

// permute returns a Fisher-Yates shuffled copy, leaving the input untouched.
func (g *Generator) permute(ids []int64) []int64 {
	shuffled := make([]int64, len(ids))
	copy(shuffled, ids)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := g.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// DisplayOption is an option annotated with its 1-based display number under
// the session's shuffle.
type DisplayOption struct {
	Option        models.QuestionOption `json:"option"`
	DisplayNumber int                   `json:"display_number"`
}

// Apply resolves the presented option order for one question. Questions
// without an entry in the map are presented in their stored order.
func Apply(q *models.Question, m Map) []DisplayOption {
	byID := make(map[int64]models.QuestionOption, len(q.Options))
	for _, opt := range q.Options {
		byID[opt.ID] = opt
	}

	ids, ok := m[q.ID]
	if !ok {
		ids = make([]int64, 0, len(q.Options))
		for _, opt := range q.Options {
			ids = append(ids, opt.ID)
		}
	}

	display := make([]DisplayOption, 0, len(ids))
	for i, id := range ids {
		opt, found := byID[id]
		if !found {
			continue
		}
		display = append(display, DisplayOption{Option: opt, DisplayNumber: i + 1})
	}
	return display
}
