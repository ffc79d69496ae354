package scan

import "fmt"

// Pass is the kind of pass a level of the ladder receives on the way up.
type Pass int

const (
	// PassLookBack reduces and resolves the whole level in one dispatch.
	PassLookBack Pass = iota
	// PassReduce only reduces the level; its aggregates form the next level
	// and its prefixes are added on the way down.
	PassReduce
)

func (p Pass) String() string {
	switch p {
	case PassLookBack:
		return "lookback"
	case PassReduce:
		return "reduce"
	}
	return fmt.Sprintf("Pass(%d)", int(p))
}

// LevelPlan describes one level of the ladder.
type LevelPlan struct {
	Length int  // elements in the level
	Blocks int  // ceil(Length / BlockCapacity)
	Pass   Pass // pass run on the way up
}

// Plan builds the ladder for a sequence of n elements. Level 0 is the
// sequence itself and level k+1 is the aggregate array of level k. The last
// level always receives a look-back pass; with the two-pass strategy that
// level holds a single block.
func Plan(n int, opts Options) []LevelPlan {
	if n <= 0 {
		return nil
	}
	var plan []LevelPlan
	for {
		blocks := BlockCount(n, opts.BlockCapacity)
		fits := blocks == 1 ||
			(opts.Strategy == StrategyLookBack && blocks <= opts.MaxGroupsPerPass)
		if fits {
			return append(plan, LevelPlan{Length: n, Blocks: blocks, Pass: PassLookBack})
		}
		plan = append(plan, LevelPlan{Length: n, Blocks: blocks, Pass: PassReduce})
		n = blocks
	}
}

// BlockCount returns ceil(n / capacity), and at least one block.
func BlockCount(n, capacity int) int {
	return max((n+capacity-1)/capacity, 1)
}
