// Package form binds editable field state to an entity and drives its
// validate-then-save lifecycle.
package form

import (
	"context"
	"sync"

	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/pkg/logger"
)

// State of a form controller.
type State string

const (
	StateIdle             State = "idle"
	StateEditing          State = "editing"
	StateSubmitting       State = "submitting"
	StateSuccess          State = "success"
	StateValidationFailed State = "validation-failed"
	StateSubmitFailed     State = "submit-failed"
)

// Store is the subset of the entity accessor a form needs.
type Store interface {
	Get(ctx context.Context, id string) (entity.Record, error)
	Create(ctx context.Context, data entity.Record) (string, error)
	Update(ctx context.Context, id string, partial entity.Record) error
}

// Callbacks are invoked on submit success, submit failure and cancel.
// Any of them may be nil.
type Callbacks struct {
	OnSuccess func(id string, values entity.Record)
	OnError   func(err error)
	OnCancel  func()
}

// Controller holds the local state of one form.
type Controller struct {
	schema entity.Schema
	store  Store
	rules  Rules
	cb     Callbacks

	mu     sync.Mutex
	state  State
	id     string
	values entity.Record
	errors []apperr.FieldError
	err    error
}

// New returns an idle controller. rules nil means RulesFor(schema).
func New(schema entity.Schema, store Store, rules Rules, cb Callbacks) *Controller {
	if rules == nil {
		rules = RulesFor(schema)
	}
	return &Controller{schema: schema, store: store, rules: rules, cb: cb, state: StateIdle}
}

// Load seeds the form. With an id the entity is fetched and must exist;
// without one the schema defaults are used.
func (c *Controller) Load(ctx context.Context, id string) error {
	values := entity.Record{}
	if id != "" {
		rec, err := c.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperr.NotFound(c.schema.Collection, id)
		}
		values = rec
	} else {
		for _, f := range c.schema.Fields {
			if f.Default != nil {
				values[f.Name] = f.Default
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.values = values
	c.errors = nil
	c.err = nil
	c.state = StateEditing
	return nil
}

// Set changes one field locally.
func (c *Controller) Set(field string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureEditing()
	c.values[field] = value
}

// SetAll changes several fields locally.
func (c *Controller) SetAll(values entity.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureEditing()
	for k, v := range values {
		c.values[k] = v
	}
}

func (c *Controller) ensureEditing() {
	if c.values == nil {
		c.values = entity.Record{}
	}
	switch c.state {
	case StateIdle, StateSuccess, StateValidationFailed, StateSubmitFailed:
		c.state = StateEditing
	}
}

// Validate runs the rules on the current values without changing state.
func (c *Controller) Validate() []apperr.FieldError {
	c.mu.Lock()
	values := c.values.Clone()
	c.mu.Unlock()
	return c.rules.Validate(values)
}

// Submit validates and then creates or updates the entity. A validation
// failure never reaches the store.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return "", apperr.BadRequest("submit already in progress")
	}
	values := c.values.Clone()
	if values == nil {
		values = entity.Record{}
	}
	if errs := c.rules.Validate(values); len(errs) > 0 {
		c.errors = errs
		c.err = nil
		c.state = StateValidationFailed
		c.mu.Unlock()
		return "", apperr.Validation(errs)
	}
	c.errors = nil
	c.state = StateSubmitting
	id := c.id
	c.mu.Unlock()

	var err error
	if id == "" {
		id, err = c.store.Create(ctx, values)
	} else {
		err = c.store.Update(ctx, id, values)
	}

	c.mu.Lock()
	if err != nil {
		c.err = err
		c.state = StateSubmitFailed
		c.mu.Unlock()
		logger.Warnf("form %s submit failed: %v", c.schema.Type, err)
		if c.cb.OnError != nil {
			c.cb.OnError(err)
		}
		return "", err
	}
	c.id = id
	c.err = nil
	c.state = StateSuccess
	c.mu.Unlock()
	if c.cb.OnSuccess != nil {
		c.cb.OnSuccess(id, values)
	}
	return id, nil
}

// Cancel discards local state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.state = StateIdle
	c.id = ""
	c.values = nil
	c.errors = nil
	c.err = nil
	c.mu.Unlock()
	if c.cb.OnCancel != nil {
		c.cb.OnCancel()
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Values returns a copy of the current values.
func (c *Controller) Values() entity.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Clone()
}

// FieldErrors returns the errors of the last failed validation.
func (c *Controller) FieldErrors() []apperr.FieldError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]apperr.FieldError(nil), c.errors...)
}

// Err returns the error attached by the last failed submit.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ID returns the entity id; empty until a new entity is created.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}
