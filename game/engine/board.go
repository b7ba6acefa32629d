package engine

import "fmt"

// Tile is a playable board cell
type Tile struct {
	Category string   `json:"category"`
	Value    int      `json:"value"`
	Question Question `json:"question"`
}

// Key returns the tile's key
func (t Tile) Key() TileKey {
	return TileKey{Category: t.Category, Value: t.Value}
}

// Board answers occupancy questions over a SessionState
type Board struct {
	state   *SessionState
	catalog *Catalog
	values  []int
}

// NewBoard binds a board view to state. values are the tile value columns.
func NewBoard(state *SessionState, catalog *Catalog, values []int) *Board {
	if catalog == nil {
		catalog = EmptyCatalog()
	}
	return &Board{state: state, catalog: catalog, values: values}
}

func (b *Board) level(level int) (*LevelState, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	ls := b.state.Levels[level]
	if ls == nil {
		ls = &LevelState{Unlocked: level == MinLevel, Tiles: map[string]TileRecord{}}
		b.state.Levels[level] = ls
	}
	if ls.Tiles == nil {
		ls.Tiles = map[string]TileRecord{}
	}
	return ls, nil
}

// AvailableTiles lists tiles with a resolvable question and no record, in
// category order then value order.
func (b *Board) AvailableTiles(level int) []Tile {
	ls, err := b.level(level)
	if err != nil {
		return nil
	}
	var tiles []Tile
	for _, cat := range b.catalog.Categories {
		for _, v := range b.values {
			if _, played := ls.Tiles[TileKey{cat, v}.String()]; played {
				continue
			}
			q, ok := b.catalog.Find(level, cat, v)
			if !ok {
				continue
			}
			tiles = append(tiles, Tile{Category: cat, Value: v, Question: q})
		}
	}
	return tiles
}

// Lookup returns the record for a tile, if any
func (b *Board) Lookup(level int, key TileKey) (TileRecord, bool) {
	ls, err := b.level(level)
	if err != nil {
		return TileRecord{}, false
	}
	rec, ok := ls.Tiles[key.String()]
	return rec, ok
}

// Record stores the outcome of a tile. A tile can be recorded only once; a
// second attempt fails with ErrDuplicateTile and leaves the first record intact.
func (b *Board) Record(level int, key TileKey, rec TileRecord) error {
	ls, err := b.level(level)
	if err != nil {
		return err
	}
	k := key.String()
	if _, exists := ls.Tiles[k]; exists {
		return fmt.Errorf("%w: level %d %s", ErrDuplicateTile, level, k)
	}
	ls.Tiles[k] = rec
	return nil
}

// IsComplete reports whether every resolvable tile of the level has been
// played. A level with no resolvable tiles is never complete.
func (b *Board) IsComplete(level int) bool {
	ls, err := b.level(level)
	if err != nil {
		return false
	}
	answered := len(ls.Tiles)
	total := answered + len(b.AvailableTiles(level))
	return total > 0 && answered >= total
}

// Completion describes what CheckCompletion changed
type Completion struct {
	Level     int  `json:"level"`
	Completed bool `json:"completed"`
	Unlocked  int  `json:"unlocked,omitempty"`
	Final     bool `json:"final"`
}

// CheckCompletion marks the level complete and unlocks the next one the first
// time the level is found complete. Later calls report Completed=false.
func (b *Board) CheckCompletion(level int) Completion {
	ls, err := b.level(level)
	if err != nil || ls.Completed || !b.IsComplete(level) {
		return Completion{Level: level}
	}
	ls.Completed = true
	c := Completion{Level: level, Completed: true, Final: level >= MaxLevel}
	if level < MaxLevel {
		next, _ := b.level(level + 1)
		if !next.Unlocked {
			next.Unlocked = true
			c.Unlocked = level + 1
		}
	}
	return c
}

// TileStatus is the render state of a board cell
type TileStatus string

const (
	TileReady    TileStatus = "ready"
	TileDisabled TileStatus = "disabled"
	TilePlayed   TileStatus = "played"
	TileClaimed  TileStatus = "claimed"
)

// TileView is one cell of a rendered board
type TileView struct {
	Category string      `json:"category"`
	Value    int         `json:"value"`
	Status   TileStatus  `json:"status"`
	Record   *TileRecord `json:"record,omitempty"`
}

// BoardView is a category by value grid for presentation
type BoardView struct {
	Level      int          `json:"level"`
	City       string       `json:"city"`
	Unlocked   bool         `json:"unlocked"`
	Completed  bool         `json:"completed"`
	Categories []string     `json:"categories"`
	Values     []int        `json:"values"`
	Columns    [][]TileView `json:"columns"`
}

// View renders a level. claimed marks a tile the AI is deliberating over.
func (b *Board) View(level int, claimed *TileKey) (BoardView, error) {
	ls, err := b.level(level)
	if err != nil {
		return BoardView{}, err
	}
	view := BoardView{
		Level:      level,
		City:       b.catalog.LevelName(level),
		Unlocked:   ls.Unlocked,
		Completed:  ls.Completed,
		Categories: append([]string{}, b.catalog.Categories...),
		Values:     append([]int{}, b.values...),
	}
	for _, cat := range b.catalog.Categories {
		col := make([]TileView, 0, len(b.values))
		for _, v := range b.values {
			key := TileKey{cat, v}
			tv := TileView{Category: cat, Value: v, Status: TileReady}
			if rec, ok := ls.Tiles[key.String()]; ok {
				r := rec
				tv.Status = TilePlayed
				tv.Record = &r
			} else if _, ok := b.catalog.Find(level, cat, v); !ok {
				tv.Status = TileDisabled
			} else if claimed != nil && *claimed == key {
				tv.Status = TileClaimed
			}
			col = append(col, tv)
		}
		view.Columns = append(view.Columns, col)
	}
	return view, nil
}
