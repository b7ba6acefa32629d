package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Catalog is the read-only question bank shared by every session
type Catalog struct {
	Categories []string              `json:"categories"`
	Levels     []Level               `json:"levels"`
	Questions  []Question            `json:"questions"`
	Fallbacks  map[string]QuestionID `json:"fallbacks"`

	direct map[string]int
	byID   map[QuestionID]int
}

// EmptyCatalog returns a catalog with no playable tiles
func EmptyCatalog() *Catalog {
	c := &Catalog{}
	c.index()
	return c
}

// ParseCatalog decodes and indexes a catalog document
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	c.index()
	return &c, nil
}

// LoadCatalog reads a catalog from disk. On failure it returns an empty
// catalog together with an error wrapping ErrCatalogUnavailable, so callers
// can report the problem and keep running with no playable tiles.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EmptyCatalog(), fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return EmptyCatalog(), err
	}
	return c, nil
}

func directKey(level int, category string, value int) string {
	return category + "|" + strconv.Itoa(level) + "|" + strconv.Itoa(value)
}

func (c *Catalog) index() {
	c.direct = make(map[string]int, len(c.Questions))
	c.byID = make(map[QuestionID]int, len(c.Questions))
	for i, q := range c.Questions {
		k := directKey(q.Level, q.Category, q.Value)
		if _, ok := c.direct[k]; !ok {
			c.direct[k] = i
		}
		if _, ok := c.byID[q.ID]; !ok {
			c.byID[q.ID] = i
		}
	}
}

// Find resolves a tile to its question: the first direct match, else the
// fallback table. The second result is false when the tile is unplayable.
func (c *Catalog) Find(level int, category string, value int) (Question, bool) {
	if c == nil {
		return Question{}, false
	}
	k := directKey(level, category, value)
	if i, ok := c.direct[k]; ok {
		return c.Questions[i], true
	}
	if id, ok := c.Fallbacks[k]; ok && id != "" {
		if i, ok := c.byID[id]; ok {
			return c.Questions[i], true
		}
	}
	return Question{}, false
}

// QuestionByID looks a question up by id
func (c *Catalog) QuestionByID(id QuestionID) (Question, bool) {
	if c == nil {
		return Question{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Question{}, false
	}
	return c.Questions[i], true
}

// LevelName returns the city name for a level, or "" if unknown
func (c *Catalog) LevelName(level int) string {
	if c == nil {
		return ""
	}
	for _, l := range c.Levels {
		if l.ID == level {
			return l.Name
		}
	}
	return ""
}

// Distractors returns up to count unique wrong answers from the whole
// catalog, shuffled with rng. Answers equal to the canonical one, literally
// or after normalization, are excluded.
func (c *Catalog) Distractors(q Question, count int, rng Source) []string {
	if c == nil || count <= 0 {
		return []string{}
	}
	canonical := Normalize(q.Answer)
	seen := make(map[string]bool)
	var pool []string
	for _, item := range c.Questions {
		a := item.Answer
		if a == q.Answer || seen[a] || a == "" {
			continue
		}
		if canonical != "" && Normalize(a) == canonical {
			continue
		}
		seen[a] = true
		pool = append(pool, a)
	}
	shuffled := Shuffle(pool, rng)
	if len(shuffled) > count {
		shuffled = shuffled[:count]
	}
	return shuffled
}

// Choices returns the canonical answer plus distractors in shuffled order
func (c *Catalog) Choices(q Question, count int, rng Source) []string {
	options := append([]string{q.Answer}, c.Distractors(q, count, rng)...)
	return Shuffle(options, rng)
}

// PracticeQuestion is the warm-up question offered before the first city
type PracticeQuestion struct {
	Question Question `json:"question"`
	Choices  []string `json:"choices"`
}

// PracticeValue is the tile value the warm-up question is drawn from
const PracticeValue = 400

// Practice returns the first level-1 $400 question with two distractors taken
// in catalog order. It reports false when no such question exists.
func (c *Catalog) Practice(rng Source) (PracticeQuestion, bool) {
	if c == nil {
		return PracticeQuestion{}, false
	}
	var pq *Question
	for i := range c.Questions {
		if c.Questions[i].Level == MinLevel && c.Questions[i].Value == PracticeValue {
			pq = &c.Questions[i]
			break
		}
	}
	if pq == nil {
		return PracticeQuestion{}, false
	}
	options := []string{pq.Answer}
	for _, q := range c.Questions {
		if len(options) == 3 {
			break
		}
		if q.Answer != pq.Answer {
			options = append(options, q.Answer)
		}
	}
	return PracticeQuestion{Question: *pq, Choices: Shuffle(options, rng)}, true
}

// TileSource says how a tile resolves
type TileSource string

const (
	SourceDirect   TileSource = "direct"
	SourceFallback TileSource = "fallback"
	SourceMissing  TileSource = "missing"
)

// TileCoverage describes one board cell
type TileCoverage struct {
	Category   string     `json:"category"`
	Value      int        `json:"value"`
	Source     TileSource `json:"source"`
	QuestionID QuestionID `json:"question_id,omitempty"`
}

// Coverage reports how each tile of a level resolves
func (c *Catalog) Coverage(level int, tileValues []int) []TileCoverage {
	if c == nil {
		return nil
	}
	var out []TileCoverage
	for _, cat := range c.Categories {
		for _, v := range tileValues {
			tc := TileCoverage{Category: cat, Value: v, Source: SourceMissing}
			k := directKey(level, cat, v)
			if i, ok := c.direct[k]; ok {
				tc.Source = SourceDirect
				tc.QuestionID = c.Questions[i].ID
			} else if q, ok := c.Find(level, cat, v); ok {
				tc.Source = SourceFallback
				tc.QuestionID = q.ID
			}
			out = append(out, tc)
		}
	}
	return out
}

// Problems lists structural defects in the catalog. An empty result means the
// catalog is consistent with the given board values.
func (c *Catalog) Problems(tileValues []int) []string {
	if c == nil {
		return []string{"catalog is nil"}
	}
	var problems []string
	if len(c.Categories) == 0 {
		problems = append(problems, "no categories")
	}
	if len(c.Questions) == 0 {
		problems = append(problems, "no questions")
	}

	cats := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		cats[cat] = true
	}
	values := make(map[int]bool, len(tileValues))
	for _, v := range tileValues {
		values[v] = true
	}
	levels := make(map[int]bool, len(c.Levels))
	for _, l := range c.Levels {
		if l.ID < MinLevel || l.ID > MaxLevel {
			problems = append(problems, fmt.Sprintf("level %d is outside %d..%d", l.ID, MinLevel, MaxLevel))
		}
		levels[l.ID] = true
	}

	ids := make(map[QuestionID]bool, len(c.Questions))
	for _, q := range c.Questions {
		if q.ID == "" {
			problems = append(problems, fmt.Sprintf("question %q has no id", q.Question))
		} else if ids[q.ID] {
			problems = append(problems, fmt.Sprintf("duplicate question id %s", q.ID))
		}
		ids[q.ID] = true
		if !cats[q.Category] {
			problems = append(problems, fmt.Sprintf("question %s uses unknown category %q", q.ID, q.Category))
		}
		if q.Level < MinLevel || q.Level > MaxLevel {
			problems = append(problems, fmt.Sprintf("question %s has level %d outside %d..%d", q.ID, q.Level, MinLevel, MaxLevel))
		} else if len(levels) > 0 && !levels[q.Level] {
			problems = append(problems, fmt.Sprintf("question %s has level %d missing from levels", q.ID, q.Level))
		}
		if len(values) > 0 && !values[q.Value] {
			problems = append(problems, fmt.Sprintf("question %s has value %d not on the board", q.ID, q.Value))
		}
		if Normalize(q.Answer) == "" {
			problems = append(problems, fmt.Sprintf("question %s has an empty answer", q.ID))
		}
	}

	keys := make([]string, 0, len(c.Fallbacks))
	for k := range c.Fallbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !ids[c.Fallbacks[k]] {
			problems = append(problems, fmt.Sprintf("fallback %q points to missing question %s", k, c.Fallbacks[k]))
		}
	}
	return problems
}
