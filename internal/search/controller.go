package search

import (
	"context"
	"sync"
	"time"

	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/pkg/logger"
	"github.com/tourcraft/tourcraft/pkg/metrics"
)

// DefaultDebounce is the quiet period before a search fires.
const DefaultDebounce = 300 * time.Millisecond

// Func performs one search.
type Func func(ctx context.Context, term string) ([]entity.Record, error)

// Results is what a fired search produced. Err is set when the search failed.
type Results struct {
	Seq     uint64
	Term    string
	Records []entity.Record
	Err     error
}

// Controller debounces input and applies only the latest issued search.
type Controller struct {
	collection string
	search     Func
	delay      time.Duration
	onResults  func(Results)

	ctx    context.Context
	cancel context.CancelFunc

	// emitMu orders delivery: a result set is checked and handed to
	// onResults before any later one.
	emitMu sync.Mutex

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	term     string
	results  []entity.Record
	selected entity.Record
	closed   bool
}

// NewController returns a controller. delay <= 0 means DefaultDebounce.
// onResults, if set, receives every applied result set.
func NewController(collection string, fn Func, delay time.Duration, onResults func(Results)) *Controller {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		collection: collection,
		search:     fn,
		delay:      delay,
		onResults:  onResults,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Input records a new term and restarts the debounce timer.
func (c *Controller) Input(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.term = term
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, func() { c.fire(term) })
}

func (c *Controller) fire(term string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	records, err := c.search(c.ctx, term)

	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		metrics.Searches.WithLabelValues(c.collection, "stale").Inc()
		logger.Debugf("search %s #%d discarded: newer search issued", c.collection, seq)
		return
	}
	if err != nil {
		c.mu.Unlock()
		metrics.Searches.WithLabelValues(c.collection, "error").Inc()
		c.emit(Results{Seq: seq, Term: term, Err: err})
		return
	}
	c.results = records
	c.mu.Unlock()
	metrics.Searches.WithLabelValues(c.collection, "applied").Inc()
	c.emit(Results{Seq: seq, Term: term, Records: records})
}

func (c *Controller) emit(r Results) {
	if c.onResults != nil {
		c.onResults(r)
	}
}

// Select stores rec as the chosen entity and clears the candidates.
// In-flight searches are invalidated.
func (c *Controller) Select(rec entity.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.selected = rec
	c.results = nil
}

// Clear resets both the candidates and the selection.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.term = ""
	c.selected = nil
	c.results = nil
}

func (c *Controller) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.seq++
}

// Close stops pending timers and cancels the in-flight search.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.cancel()
}

// Results returns the current candidates.
func (c *Controller) Results() []entity.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}

// Selected returns the chosen entity, or nil.
func (c *Controller) Selected() entity.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Term returns the last input term.
func (c *Controller) Term() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.term
}
