package completion

import (
	"sort"
	"strings"

	"go.lsp.dev/protocol"
)

// BufferID identifies the buffer a completion was triggered in. It is opaque
// to this package.
type BufferID int

type Status int

const (
	Inactive Status = iota
	Started
)

// ScoredItem is a completion item from the language server together with its
// ranking against the current filter input. Indices are the label positions
// that matched, for highlighting.
type ScoredItem struct {
	Item       protocol.CompletionItem
	Score      int
	LabelScore int
	Indices    []int
}

// Completion holds the full state of one completion popup: the in-flight
// request id, the filter input typed since the trigger position, the cached
// item sets per input, and the ranked list currently displayed.
//
// It is a plain single-writer value. All mutation goes through the owning
// Controller's message loop, Completion itself does no locking.
type Completion struct {
	requestID  int
	status     Status
	input      string
	index      int
	inputItems map[string][]ScoredItem
	filtered   []ScoredItem
	matcher    Matcher
}

func New(matcher Matcher) *Completion {
	if matcher == nil {
		matcher = NewFuzzyMatcher()
	}
	return &Completion{
		status:     Inactive,
		inputItems: map[string][]ScoredItem{},
		matcher:    matcher,
	}
}

func (c *Completion) RequestID() int { return c.requestID }
func (c *Completion) Status() Status { return c.status }
func (c *Completion) Input() string  { return c.input }
func (c *Completion) Index() int     { return c.index }

// Start marks the completion active for a new request. requestID must be
// greater than any previously used id; responses carrying an older id are
// dropped by Receive.
func (c *Completion) Start(requestID int) {
	c.requestID = requestID
	c.status = Started
}

func (c *Completion) Len() int {
	return len(c.CurrentItems())
}

func (c *Completion) IsEmpty() bool {
	return c.Len() == 0
}

// Next moves the selection down, wrapping at the end. An empty list leaves
// the selection untouched.
func (c *Completion) Next() {
	if n := c.Len(); n > 0 {
		c.index = (c.index + 1) % n
	}
}

// Previous moves the selection up, wrapping at the start.
func (c *Completion) Previous() {
	if n := c.Len(); n > 0 {
		c.index = (c.index + n - 1) % n
	}
}

// CurrentItems returns the displayed list: the unfiltered server response
// while the input is empty, otherwise the ranked filter result.
func (c *Completion) CurrentItems() []ScoredItem {
	if c.input == "" {
		return c.AllItems()
	}
	return c.filtered
}

// AllItems returns the cached items for the current input, falling back to
// the unfiltered empty-input response.
func (c *Completion) AllItems() []ScoredItem {
	if items, ok := c.inputItems[c.input]; ok {
		return items
	}
	return c.inputItems[""]
}

func (c *Completion) CurrentItem() protocol.CompletionItem {
	return c.CurrentItems()[c.index].Item
}

// Current returns the label of the selected item.
func (c *Completion) Current() string {
	return c.CurrentItem().Label
}

// Cancel deactivates the completion and drops all cached items. Idempotent.
func (c *Completion) Cancel() {
	if c.status == Inactive {
		return
	}
	c.status = Inactive
	c.input = ""
	c.inputItems = map[string][]ScoredItem{}
	c.index = 0
}

// UpdateInput replaces the filter input and resets the selection. While
// inactive the input is only stored, so it can be pre-populated before the
// next trigger.
func (c *Completion) UpdateInput(input string) {
	c.input = input
	c.index = 0
	if c.status == Inactive {
		return
	}
	c.filterItems()
}

// Receive stores a server response under the input it was requested for.
// Responses are dropped while inactive and when requestID does not match the
// current id, which is the only guard against stale async results.
func (c *Completion) Receive(requestID int, input string, items []protocol.CompletionItem) {
	if c.status == Inactive || c.requestID != requestID {
		return
	}

	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		scored = append(scored, ScoredItem{Item: item})
	}
	c.inputItems[input] = scored
	c.filterItems()
}

// filterItems recomputes the ranked list from the full unfiltered pool. It
// never narrows a previous filter result, so shrinking the input restores
// items again.
func (c *Completion) filterItems() {
	if c.input == "" {
		return
	}

	var items []ScoredItem
	for _, candidate := range c.AllItems() {
		filterText := candidate.Item.FilterText
		if filterText == "" {
			filterText = candidate.Item.Label
		}
		// Labels may wrap the filter text with a prefix, match indices
		// are shifted back into label space.
		shift := strings.Index(candidate.Item.Label, filterText)
		if shift < 0 {
			continue
		}
		score, indices, ok := c.matcher.Match(filterText, c.input)
		if !ok {
			continue
		}
		if shift > 0 {
			for i := range indices {
				indices[i] += shift
			}
		}
		item := candidate
		item.Score = score
		item.LabelScore = score
		item.Indices = indices
		if labelScore, _, ok := c.matcher.Match(candidate.Item.Label, c.input); ok {
			item.LabelScore = labelScore
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.LabelScore != b.LabelScore {
			return a.LabelScore > b.LabelScore
		}
		return len(a.Item.Label) < len(b.Item.Label)
	})
	c.filtered = items
}
