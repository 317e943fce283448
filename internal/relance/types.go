package relance

import (
	"math"
	"time"

	"github.com/tourcraft/tourcraft/internal/entity"
)

// Type is an automatic follow-up kind. A tache of this type is opened when a
// booking enters TriggerOn and completed when it enters any ResolvedBy status.
type Type struct {
	ID          string   `json:"id"`
	Nom         string   `json:"nom"`
	Description string   `json:"description"`
	Priorite    string   `json:"priorite"`
	TriggerOn   string   `json:"triggerOn"`
	ResolvedBy  []string `json:"resolvedBy"`
	DelayDays   int      `json:"delayDays,omitempty"`
	// Future types are declared but not created yet.
	Future bool `json:"future,omitempty"`
}

func (t Type) resolvedBy(status string) bool {
	for _, s := range t.ResolvedBy {
		if s == status {
			return true
		}
	}
	return false
}

// DefaultDelayDays applies to types without a DelayDays.
const DefaultDelayDays = 7

// Types are the automatic relance kinds, in evaluation order.
var Types = []Type{
	{
		ID:          "envoyer_contrat",
		Nom:         "Envoyer le contrat",
		Description: "Générer et envoyer le contrat au contact",
		Priorite:    "haute",
		TriggerOn:   entity.StatusConfirme,
		ResolvedBy:  []string{entity.StatusContratEnvoye, entity.StatusContratSigne, entity.StatusFactureEnvoye, entity.StatusAnnule},
		DelayDays:   5,
	},
	{
		ID:          "relancer_contrat",
		Nom:         "Relancer la signature du contrat",
		Description: "Relancer le contact pour obtenir le contrat signé",
		Priorite:    "moyenne",
		TriggerOn:   entity.StatusContratEnvoye,
		ResolvedBy:  []string{entity.StatusContratSigne, entity.StatusFactureEnvoye, entity.StatusAnnule},
	},
	{
		ID:          "envoyer_facture",
		Nom:         "Envoyer la facture",
		Description: "Générer et envoyer la facture",
		Priorite:    "moyenne",
		TriggerOn:   entity.StatusContratSigne,
		ResolvedBy:  []string{entity.StatusFactureEnvoye, entity.StatusAnnule},
		DelayDays:   14,
		Future:      true,
	},
}

// DueDate computes the due date of a relance created at now. When the booking
// is at most 30 days away the delay shrinks to a quarter of the days left.
// The delay is never below one day.
func DueDate(now time.Time, bookingDate time.Time, hasDate bool, delayDays int) time.Time {
	if delayDays <= 0 {
		delayDays = DefaultDelayDays
	}
	if hasDate {
		daysLeft := int(math.Floor(bookingDate.Sub(now).Hours() / 24))
		if daysLeft <= 30 {
			quarter := int(math.Floor(float64(daysLeft) / 4))
			if quarter < delayDays {
				delayDays = quarter
			}
		}
		if delayDays < 1 {
			delayDays = 1
		}
	}
	return now.AddDate(0, 0, delayDays)
}
