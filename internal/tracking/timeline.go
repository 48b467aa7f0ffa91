// Package tracking derives the order progress view and keeps it fresh while
// the customer waits for bank transfer details.
package tracking

import (
	"time"

	"bucheron/internal/domain"
)

type StepKey string

const (
	StepReceived   StepKey = "received"
	StepPayment    StepKey = "payment"
	StepConfirmed  StepKey = "confirmed"
	StepProcessing StepKey = "processing"
	StepShipped    StepKey = "shipped"
	StepDelivered  StepKey = "delivered"
)

type Step struct {
	Key         StepKey    `json:"key"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Current     bool       `json:"current"`
	At          *time.Time `json:"at,omitempty"`
}

var steps = []struct {
	key         StepKey
	label       string
	description string
	status      domain.OrderStatus
}{
	{StepReceived, "Commande reçue", "Nous avons bien reçu votre commande.", domain.OrderStatusPending},
	{StepPayment, "Paiement reçu", "Votre virement a été reçu.", ""},
	{StepConfirmed, "Commande confirmée", "Votre commande est confirmée.", domain.OrderStatusConfirmed},
	{StepProcessing, "En préparation", "Votre bois est en cours de préparation.", domain.OrderStatusProcessing},
	{StepShipped, "Expédiée", "Votre commande est en route.", domain.OrderStatusShipped},
	{StepDelivered, "Livrée", "Votre commande a été livrée.", domain.OrderStatusDelivered},
}

// Timeline always has the same six steps. Exactly one step is current: the
// first one not completed, or the last one once everything is done.
func Timeline(o domain.Order) []Step {
	out := make([]Step, len(steps))
	current := -1

	for i, s := range steps {
		step := Step{Key: s.key, Label: s.label, Description: s.description}
		switch s.key {
		case StepReceived:
			step.Completed = true
			at := o.CreatedAt
			if !at.IsZero() {
				step.At = &at
			}
		case StepPayment:
			step.Completed = o.PaymentStatus == domain.PaymentStatusReceived ||
				o.Status.Reached(domain.OrderStatusConfirmed)
			step.At = paymentAt(o)
		default:
			step.Completed = o.Status.Reached(s.status)
			step.At = reachedAt(o, s.status)
		}
		if !step.Completed && current < 0 {
			current = i
		}
		out[i] = step
	}

	if current < 0 {
		current = len(out) - 1
	}
	out[current].Current = true
	return out
}

func reachedAt(o domain.Order, status domain.OrderStatus) *time.Time {
	for _, h := range o.StatusHistory {
		if h.Status == status {
			at := h.At
			return &at
		}
	}
	return nil
}

func paymentAt(o domain.Order) *time.Time {
	for _, h := range o.StatusHistory {
		if h.PaymentStatus == domain.PaymentStatusReceived {
			at := h.At
			return &at
		}
	}
	return nil
}

// NeedsPolling is true while the page is waiting on something the customer
// cannot act without: bank details not yet attached and no payment recorded.
func NeedsPolling(o domain.Order) bool {
	return o.AwaitingBankDetails()
}
