// Package relance opens and completes automatic follow-up tasks (relances)
// when a booking changes status.
package relance

import (
	"context"
	"fmt"
	"time"

	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
	"github.com/tourcraft/tourcraft/pkg/logger"
	"github.com/tourcraft/tourcraft/pkg/metrics"
)

// Update types stamped on documents written by the workflow.
const (
	UpdateTypeAdded     = "relance_auto_added"
	UpdateTypeCompleted = "relance_auto_completed"
	UpdateTypeStatus    = "status_change"
)

// Config gates the workflow. It is passed explicitly at construction.
type Config struct {
	Enabled bool
	// WatcherEnabled turns on the passive path (accessor update observer).
	WatcherEnabled        bool
	EvaluationCooldown    time.Duration
	MaxRelancesPerConcert int
	IgnoredUpdateTypes    []string
}

// DefaultConfig enables the explicit path only.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		WatcherEnabled:        false,
		EvaluationCooldown:    5 * time.Second,
		MaxRelancesPerConcert: 10,
		IgnoredUpdateTypes:    []string{UpdateTypeAdded, UpdateTypeCompleted},
	}
}

// Source tells which path reported a transition.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceWatcher  Source = "watcher"
)

// Transition is a booking status change.
type Transition struct {
	BookingID  string
	From       string
	To         string
	UpdateType string
	Source     Source
}

// Outcome of one evaluation.
type Outcome string

const (
	OutcomeEvaluated       Outcome = "evaluated"
	OutcomeDisabled        Outcome = "disabled"
	OutcomeWatcherDisabled Outcome = "watcher_disabled"
	OutcomeIgnored         Outcome = "ignored"
	OutcomeUnchanged       Outcome = "unchanged"
	OutcomeCooldown        Outcome = "cooldown"
	OutcomeCapReached      Outcome = "cap_reached"
)

// Result lists the taches touched by an evaluation.
type Result struct {
	Outcome   Outcome  `json:"outcome"`
	Created   []string `json:"created"`
	Completed []string `json:"completed"`
}

// Bookings is the dates accessor subset used by the workflow.
type Bookings interface {
	Get(ctx context.Context, id string) (entity.Record, error)
	Update(ctx context.Context, id string, partial entity.Record) error
}

// Tasks is the taches accessor subset used by the workflow.
type Tasks interface {
	List(ctx context.Context, q repository.Query) ([]entity.Record, error)
	Create(ctx context.Context, data entity.Record) (string, error)
	Update(ctx context.Context, id string, partial entity.Record) error
	Remove(ctx context.Context, id string) error
}

// Workflow evaluates booking transitions.
type Workflow struct {
	cfg      Config
	bookings Bookings
	tasks    Tasks
	cooldown CooldownStore
	types    []Type
	ignored  map[string]bool
	now      func() time.Time
}

// New returns a workflow. cooldown nil means an in-memory store.
func New(cfg Config, bookings Bookings, tasks Tasks, cooldown CooldownStore) *Workflow {
	if cooldown == nil {
		cooldown = NewMemoryCooldown()
	}
	ignored := map[string]bool{}
	for _, t := range cfg.IgnoredUpdateTypes {
		ignored[t] = true
	}
	return &Workflow{
		cfg:      cfg,
		bookings: bookings,
		tasks:    tasks,
		cooldown: cooldown,
		types:    Types,
		ignored:  ignored,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the configuration the workflow was built with.
func (w *Workflow) Config() Config { return w.cfg }

func (w *Workflow) skip(tr Transition, o Outcome) (Result, error) {
	metrics.Relances.WithLabelValues(string(o)).Inc()
	logger.Debugf("relance %s %s->%s skipped: %s", tr.BookingID, tr.From, tr.To, o)
	return Result{Outcome: o, Created: []string{}, Completed: []string{}}, nil
}

// OnTransition completes the open relances resolved by tr.To and opens the
// relance triggered by it, if any.
func (w *Workflow) OnTransition(ctx context.Context, tr Transition) (Result, error) {
	switch {
	case !w.cfg.Enabled:
		return w.skip(tr, OutcomeDisabled)
	case tr.Source == SourceWatcher && !w.cfg.WatcherEnabled:
		return w.skip(tr, OutcomeWatcherDisabled)
	case w.ignored[tr.UpdateType]:
		return w.skip(tr, OutcomeIgnored)
	case tr.From == tr.To:
		return w.skip(tr, OutcomeUnchanged)
	}
	if w.cfg.EvaluationCooldown > 0 {
		ok, err := w.cooldown.Acquire(ctx, "eval:"+tr.BookingID, w.cfg.EvaluationCooldown)
		if err != nil {
			metrics.Relances.WithLabelValues("error").Inc()
			return Result{}, fmt.Errorf("relance cooldown: %w", err)
		}
		if !ok {
			return w.skip(tr, OutcomeCooldown)
		}
	}

	existing, err := w.automatic(ctx, tr.BookingID)
	if err != nil {
		metrics.Relances.WithLabelValues("error").Inc()
		return Result{}, err
	}

	res := Result{Outcome: OutcomeEvaluated, Created: []string{}, Completed: []string{}}
	open := map[string]bool{}
	for _, t := range existing {
		if t["terminee"] == true {
			continue
		}
		typ, ok := w.lookup(t.String("type"))
		if ok && typ.resolvedBy(tr.To) {
			id := t.String(entity.FieldID)
			if err := w.complete(ctx, id, typ); err != nil {
				metrics.Relances.WithLabelValues("error").Inc()
				return res, err
			}
			res.Completed = append(res.Completed, id)
			continue
		}
		open[t.String("type")] = true
	}

	for _, typ := range w.types {
		if typ.Future || typ.TriggerOn != tr.To || open[typ.ID] {
			continue
		}
		if w.cfg.MaxRelancesPerConcert > 0 && len(existing)+len(res.Created) >= w.cfg.MaxRelancesPerConcert {
			res.Outcome = OutcomeCapReached
			logger.Warnf("relance cap (%d) reached for booking %s", w.cfg.MaxRelancesPerConcert, tr.BookingID)
			break
		}
		id, err := w.create(ctx, tr.BookingID, typ)
		if err != nil {
			metrics.Relances.WithLabelValues("error").Inc()
			return res, err
		}
		res.Created = append(res.Created, id)
	}

	metrics.Relances.WithLabelValues(string(res.Outcome)).Inc()
	if len(res.Created)+len(res.Completed) > 0 {
		logger.Infof("relances for booking %s (%s->%s): %d created, %d completed",
			tr.BookingID, tr.From, tr.To, len(res.Created), len(res.Completed))
	}
	return res, nil
}

func (w *Workflow) lookup(id string) (Type, bool) {
	for _, t := range w.types {
		if t.ID == id {
			return t, true
		}
	}
	return Type{}, false
}

// Relances lists the automatic taches of a booking.
func (w *Workflow) Relances(ctx context.Context, bookingID string) ([]entity.Record, error) {
	return w.automatic(ctx, bookingID)
}

func (w *Workflow) automatic(ctx context.Context, bookingID string) ([]entity.Record, error) {
	return w.tasks.List(ctx, repository.Query{Conditions: []repository.Condition{
		{Field: "dateId", Op: repository.OpEq, Value: bookingID},
		{Field: "automatique", Op: repository.OpEq, Value: true},
	}})
}

func (w *Workflow) create(ctx context.Context, bookingID string, typ Type) (string, error) {
	booking, err := w.bookings.Get(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if booking == nil {
		return "", apperr.NotFound(entity.Dates, bookingID)
	}
	now := w.now()
	when, hasDate := booking.Time("date")
	titre := booking.String("titre")
	if titre == "" {
		titre = "Concert sans titre"
	}
	return w.tasks.Create(ctx, entity.Record{
		"nom":                      typ.Nom,
		"description":              typ.Description,
		"type":                     typ.ID,
		"dateId":                   bookingID,
		"priorite":                 typ.Priorite,
		"status":                   "pending",
		"automatique":              true,
		"terminee":                 false,
		"dateEcheance":             DueDate(now, when, hasDate, typ.DelayDays),
		"entityName":               titre,
		entity.FieldLastUpdateType: UpdateTypeAdded,
		"metadata":                 map[string]interface{}{
			"concertDate": booking["date"],
			"artisteNom":  booking.String("artisteNom"),
			"lieuNom":     booking.String("lieuNom"),
		},
	})
}

func (w *Workflow) complete(ctx context.Context, id string, typ Type) error {
	return w.tasks.Update(ctx, id, entity.Record{
		"terminee":                 true,
		"status":                   "completed",
		"dateTerminee":             w.now(),
		"commentaireFin":           fmt.Sprintf("Action %q effectuée automatiquement", typ.Nom),
		"termineeAutomatiquement":  true,
		entity.FieldLastUpdateType: UpdateTypeCompleted,
	})
}

// RemoveForBooking deletes every automatic relance of a booking.
func (w *Workflow) RemoveForBooking(ctx context.Context, bookingID string) (int, error) {
	list, err := w.automatic(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range list {
		err := w.tasks.Remove(ctx, t.String(entity.FieldID))
		if err != nil && !apperr.Is(err, apperr.CodeNotFound) {
			return n, err
		}
		n++
	}
	return n, nil
}

// ChangeStatus is the explicit path: it validates and stores the new status
// of a booking, then evaluates the transition.
func (w *Workflow) ChangeStatus(ctx context.Context, bookingID, status string) (Result, error) {
	if !validStatus(status) {
		return Result{}, apperr.Validation([]apperr.FieldError{{Field: "statut", Message: "Valeur non autorisée"}})
	}
	booking, err := w.bookings.Get(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	if booking == nil {
		return Result{}, apperr.NotFound(entity.Dates, bookingID)
	}
	from := booking.String("statut")
	if err := w.bookings.Update(ctx, bookingID, entity.Record{
		"statut":                   status,
		entity.FieldLastUpdateType: UpdateTypeStatus,
	}); err != nil {
		return Result{}, err
	}
	return w.OnTransition(ctx, Transition{
		BookingID:  bookingID,
		From:       from,
		To:         status,
		UpdateType: UpdateTypeStatus,
		Source:     SourceExplicit,
	})
}

func validStatus(s string) bool {
	for _, st := range entity.BookingStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Watch is an accessor update observer for the dates collection: it
// reports status changes through the passive path.
func (w *Workflow) Watch(ctx context.Context, schema entity.Schema, before, after entity.Record) {
	if schema.Collection != entity.Dates {
		return
	}
	tr := Transition{
		BookingID:  after.String(schema.IDKey()),
		From:       before.String("statut"),
		To:         after.String("statut"),
		UpdateType: after.String(entity.FieldLastUpdateType),
		Source:     SourceWatcher,
	}
	if _, err := w.OnTransition(ctx, tr); err != nil {
		logger.Errorf("relance watcher on booking %s: %v", tr.BookingID, err)
	}
}
