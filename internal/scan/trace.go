package scan

// Event is broadcast to subscribers whenever a State Cell changes tag.
type Event struct {
	Level int
	Block int
	Tag   Tag
}

// LevelTrace holds the final state of one level of the ladder.
type LevelTrace struct {
	Length  int
	Blocks  int
	Pass    Pass
	Claimed int // final value of the level's claim counter
	Cells   []CellSnapshot
}

// Trace is the diagnostic record of one scan.
type Trace struct {
	Levels []LevelTrace
}

// AllResolved reports whether every cell of every level reached a
// GlobalPrefix* tag.
func (t *Trace) AllResolved() bool {
	for _, lv := range t.Levels {
		for _, c := range lv.Cells {
			if !c.Tag.Resolved() {
				return false
			}
		}
	}
	return true
}

// Depth returns the number of levels.
func (t *Trace) Depth() int {
	return len(t.Levels)
}

func buildTrace[T Element](levels []*level[T]) *Trace {
	tr := &Trace{Levels: make([]LevelTrace, len(levels))}
	for k, lv := range levels {
		cells := make([]CellSnapshot, len(lv.cells))
		for i := range lv.cells {
			cells[i] = lv.cells[i].Snapshot()
		}
		tr.Levels[k] = LevelTrace{
			Length:  lv.plan.Length,
			Blocks:  lv.plan.Blocks,
			Pass:    lv.plan.Pass,
			Claimed: lv.claimer.Claimed(),
			Cells:   cells,
		}
	}
	return tr
}
