package scraper

import (
	"time"

	"github.com/aluiziolira/go-scrape-listings/render"
)

// Level is how patiently a page is rendered.
type Level int

const (
	LevelStandard Level = iota
	LevelPagination
	LevelExtended
	LevelUltraExtended
)

func (l Level) String() string {
	switch l {
	case LevelStandard:
		return "standard"
	case LevelPagination:
		return "pagination"
	case LevelExtended:
		return "extended"
	case LevelUltraExtended:
		return "ultra_extended"
	}
	return "unknown"
}

// progressive builds a wait/scroll script that settles for wait before each scroll
// position and returns to the top at the end.
func progressive(wait time.Duration, positions ...int) []render.Step {
	steps := []render.Step{render.WaitStep(wait)}
	for _, y := range positions {
		steps = append(steps, render.ScrollStep(y), render.WaitStep(wait))
	}
	return append(steps, render.ScrollStep(0), render.WaitStep(wait))
}

// defaultTimeout is the standard and pagination render budget when none is configured.
const defaultTimeout = 120 * time.Second

// timeoutPercent scales the base render budget per level.
var timeoutPercent = map[Level]int64{
	LevelStandard:      100,
	LevelPagination:    100,
	LevelExtended:      125,
	LevelUltraExtended: 150,
}

var levels = map[Level]render.Options{
	LevelStandard: {
		InitialWait: 5 * time.Second,
		WaitFor:     "div[data-product-id]",
		Steps:       progressive(2*time.Second, 1000, 2000, 3000),
	},
	LevelPagination: {
		InitialWait:        12 * time.Second,
		WaitForNetworkIdle: true,
		WaitFor:            ".sui-grid, [data-product-id], .product-pod, .search-results",
		Steps:              progressive(3*time.Second, 800, 1600, 2400, 3200, 4000, 5000),
	},
	LevelExtended: {
		InitialWait:        15 * time.Second,
		WaitForNetworkIdle: true,
		WaitFor:            "body",
		Steps:              progressive(4*time.Second, 600, 1200, 1800, 2400, 3000, 3600, 4200, 5000, 6000),
	},
	LevelUltraExtended: {
		InitialWait:        20 * time.Second,
		WaitForNetworkIdle: true,
		WaitFor:            "body",
		Steps:              progressive(5*time.Second, 500, 1000, 1500, 2000, 2500, 3000, 3500, 4000, 5000, 6000, 7000, 8000),
	},
}

// Options returns the render options for a level with the default budget.
func (l Level) Options() render.Options {
	return l.OptionsWithTimeout(defaultTimeout)
}

// OptionsWithTimeout returns the render options for a level, scaling base into the level's
// render budget. Unknown levels render as standard.
func (l Level) OptionsWithTimeout(base time.Duration) render.Options {
	if base <= 0 {
		base = defaultTimeout
	}
	opts, ok := levels[l]
	if !ok {
		l, opts = LevelStandard, levels[LevelStandard]
	}
	opts.Timeout = base * time.Duration(timeoutPercent[l]) / 100
	return opts
}
