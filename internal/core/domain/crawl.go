package domain

import (
	"fmt"
	"time"
)

// QueueItem is one URL waiting in the crawl queue.
type QueueItem struct {
	URL string `json:"url"`

	// LastModified is the manifest's last-modified hint, if any.
	LastModified *time.Time `json:"lastmod,omitempty"`
}

// CrawlState is the persisted, resumable crawl queue.
// Cursor <= Total <= len(Queue) always holds; a CrawlState is only
// produced through NewCrawlState, RestoreCrawlState and Advance.
type CrawlState struct {
	queue  []QueueItem
	cursor int
	total  int
}

// NewCrawlState starts a queue over items with the cursor at 0.
func NewCrawlState(items []QueueItem) CrawlState {
	q := make([]QueueItem, len(items))
	copy(q, items)
	return CrawlState{queue: q, total: len(q)}
}

// RestoreCrawlState rebuilds a state read back from storage.
func RestoreCrawlState(items []QueueItem, cursor, total int) (CrawlState, error) {
	if cursor < 0 || total < 0 || cursor > total || total > len(items) {
		return CrawlState{}, fmt.Errorf("%w: cursor=%d total=%d queue=%d",
			ErrInvalidCrawlState, cursor, total, len(items))
	}
	return CrawlState{queue: items, cursor: cursor, total: total}, nil
}

// Queue returns a copy of the queued items.
func (s CrawlState) Queue() []QueueItem {
	q := make([]QueueItem, len(s.queue))
	copy(q, s.queue)
	return q
}

// Cursor is the index of the next item to process.
func (s CrawlState) Cursor() int { return s.cursor }

// Total is the number of items this run will process.
func (s CrawlState) Total() int { return s.total }

// Pending returns how many items remain.
func (s CrawlState) Pending() int { return s.total - s.cursor }

// Empty reports whether there is no queue at all.
func (s CrawlState) Empty() bool { return s.total == 0 }

// Done reports whether every item has been processed.
func (s CrawlState) Done() bool { return s.cursor >= s.total }

// Current returns the item at the cursor.
func (s CrawlState) Current() (QueueItem, bool) {
	if s.Done() {
		return QueueItem{}, false
	}
	return s.queue[s.cursor], true
}

// BatchEnd returns the exclusive end index of a batch starting at the cursor.
func (s CrawlState) BatchEnd(size int) int {
	if size <= 0 {
		size = 1
	}
	end := s.cursor + size
	if end > s.total {
		end = s.total
	}
	return end
}

// Advance moves the cursor past the current item.
func (s CrawlState) Advance() CrawlState {
	if s.cursor < s.total {
		s.cursor++
	}
	return s
}

// CrawlFailure records one URL that could not be indexed.
type CrawlFailure struct {
	URL    string    `json:"url"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// IndexOutcome is the result of indexing one URL.
type IndexOutcome string

// Index outcomes. Indexed and Failed are the definite answers; Unchanged and
// Skipped mean nothing was written and nothing went wrong.
const (
	OutcomeIndexed   IndexOutcome = "indexed"
	OutcomeUnchanged IndexOutcome = "unchanged"
	OutcomeSkipped   IndexOutcome = "skipped"
	OutcomeFailed    IndexOutcome = "failed"
)

// Result maps an outcome onto the true/false/none answer of a single-URL reindex.
func (o IndexOutcome) Result() *bool {
	var b bool
	switch o {
	case OutcomeIndexed:
		b = true
	case OutcomeFailed:
		b = false
	default:
		return nil
	}
	return &b
}

// IndexAllResult reports the outcome of a full reindex request.
type IndexAllResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Queued  int    `json:"queued"`
}

// BatchResult summarises one worker batch.
type BatchResult struct {
	// LeaseHeld is true when another worker held the lease and nothing ran.
	LeaseHeld bool `json:"lease_held"`

	Processed int `json:"processed"`
	Indexed   int `json:"indexed"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Cursor    int `json:"cursor"`
	Total     int `json:"total"`

	// Rescheduled is true when items remain and another run was scheduled.
	Rescheduled bool `json:"rescheduled"`

	// Completed is true when this batch drained the queue.
	Completed bool `json:"completed"`
}

// Count adds one outcome to the batch totals.
func (r *BatchResult) Count(o IndexOutcome) {
	r.Processed++
	switch o {
	case OutcomeIndexed:
		r.Indexed++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// IndexStatus is an operator view of the crawl and the index.
type IndexStatus struct {
	Cursor        int            `json:"cursor"`
	Total         int            `json:"total"`
	LeaseHolder   string         `json:"lease_holder,omitempty"`
	LastCompleted *time.Time     `json:"last_completed,omitempty"`
	Failures      []CrawlFailure `json:"failures,omitempty"`
	Documents     int            `json:"documents"`
	Chunks        int            `json:"chunks"`
}

// ManifestEntry is one page URL listed in the site manifest.
type ManifestEntry struct {
	URL          string
	LastModified *time.Time
}

// FetchResult is a fetched HTTP response.
type FetchResult struct {
	URL         string
	FinalURL    string
	Status      int
	ContentType string
	Body        []byte
}
