package interact

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Benny93/graphpanel/internal/graph"
)

// DefaultTooltipHold is how long a hover lasts before the tooltip expands.
const DefaultTooltipHold = time.Second

// TooltipState is the visibility of one node's tooltip.
type TooltipState int

const (
	TooltipHidden TooltipState = iota
	TooltipSimple
	TooltipDetailed
)

func (s TooltipState) String() string {
	switch s {
	case TooltipHidden:
		return "hidden"
	case TooltipSimple:
		return "simple"
	case TooltipDetailed:
		return "detailed"
	default:
		return fmt.Sprintf("TooltipState(%d)", int(s))
	}
}

// Row is one key/value line of a detailed tooltip.
type Row struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TooltipContent is what a tooltip shows in a given state.
type TooltipContent struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows,omitempty"`

	// Interactive tooltips stay open while the pointer is over them.
	Interactive bool `json:"interactive"`
}

// SimpleTooltip is the one-line tooltip text of n.
func SimpleTooltip(n *graph.Node) string {
	return fmt.Sprintf("%s: %s", n.DisplayType(), n.ID)
}

// Content returns the tooltip content of n in state s.
func Content(n *graph.Node, s TooltipState) TooltipContent {
	c := TooltipContent{Title: SimpleTooltip(n)}
	if s != TooltipDetailed {
		return c
	}
	c.Interactive = true
	for _, d := range n.Details {
		c.Rows = append(c.Rows, Row{Key: d.Key, Value: strings.Join(d.Values, ", ")})
	}
	if len(c.Rows) == 0 {
		c.Rows = []Row{{Key: "-"}}
	}
	return c
}

type tooltip struct {
	state TooltipState
	hold  Timer
	gen   uint64
}

// Tooltips tracks the tooltip of every node. Hovering shows the simple
// form and arms a hold timer that upgrades it to the detailed form.
// Leaving hides a simple tooltip at once; a detailed one stays until
// dismissed, which resets it to simple for the next hover.
type Tooltips struct {
	mu       sync.Mutex
	hold     time.Duration
	clock    Clock
	onChange func(id string, s TooltipState)
	tips     map[string]*tooltip
	closed   bool
}

// NewTooltips creates a registry. onChange, if set, is called after every
// state change without the registry lock held.
func NewTooltips(hold time.Duration, clock Clock, onChange func(id string, s TooltipState)) *Tooltips {
	if hold <= 0 {
		hold = DefaultTooltipHold
	}
	return &Tooltips{hold: hold, clock: clock, onChange: onChange, tips: make(map[string]*tooltip)}
}

func (t *Tooltips) get(id string) *tooltip {
	tip, ok := t.tips[id]
	if !ok {
		tip = &tooltip{}
		t.tips[id] = tip
	}
	return tip
}

func (t *Tooltips) notify(id string, s TooltipState) {
	if t.onChange != nil {
		t.onChange(id, s)
	}
}

// Enter shows the tooltip of id and arms the hold timer.
func (t *Tooltips) Enter(id string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	tip := t.get(id)
	if tip.hold != nil {
		tip.hold.Stop()
	}
	tip.gen++
	gen := tip.gen
	tip.hold = t.clock.AfterFunc(t.hold, func() { t.expand(id, gen) })

	changed := tip.state == TooltipHidden
	if changed {
		tip.state = TooltipSimple
	}
	t.mu.Unlock()

	if changed {
		t.notify(id, TooltipSimple)
	}
}

func (t *Tooltips) expand(id string, gen uint64) {
	t.mu.Lock()
	tip := t.tips[id]
	if t.closed || tip == nil || tip.gen != gen || tip.state == TooltipDetailed {
		t.mu.Unlock()
		return
	}
	tip.hold = nil
	tip.state = TooltipDetailed
	t.mu.Unlock()

	t.notify(id, TooltipDetailed)
}

// Leave cancels the hold timer and hides a simple tooltip.
func (t *Tooltips) Leave(id string) {
	t.mu.Lock()
	tip, ok := t.tips[id]
	if t.closed || !ok {
		t.mu.Unlock()
		return
	}
	t.stopLocked(tip)
	hide := tip.state == TooltipSimple
	if hide {
		tip.state = TooltipHidden
	}
	t.mu.Unlock()

	if hide {
		t.notify(id, TooltipHidden)
	}
}

// Dismiss hides the tooltip whatever its form and resets it to simple.
func (t *Tooltips) Dismiss(id string) {
	t.mu.Lock()
	tip, ok := t.tips[id]
	if t.closed || !ok {
		t.mu.Unlock()
		return
	}
	t.stopLocked(tip)
	changed := tip.state != TooltipHidden
	tip.state = TooltipHidden
	t.mu.Unlock()

	if changed {
		t.notify(id, TooltipHidden)
	}
}

func (t *Tooltips) stopLocked(tip *tooltip) {
	tip.gen++
	if tip.hold != nil {
		tip.hold.Stop()
		tip.hold = nil
	}
}

// State returns the current state of id's tooltip.
func (t *Tooltips) State(id string) TooltipState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tip, ok := t.tips[id]; ok {
		return tip.state
	}
	return TooltipHidden
}

// Visible returns the IDs of shown tooltips, sorted.
func (t *Tooltips) Visible() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	for id, tip := range t.tips {
		if tip.state != TooltipHidden {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Close cancels every hold timer and hides all tooltips silently.
func (t *Tooltips) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for _, tip := range t.tips {
		t.stopLocked(tip)
		tip.state = TooltipHidden
	}
}
