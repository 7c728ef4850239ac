package datastore

import (
	"fmt"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/models"
)

func paymentID(p models.Payment) string { return p.ID }

// AddPayment stores a new payment. An empty status becomes Pending; a
// payment created as Paid is stamped paid.
func (s *Store) AddPayment(in models.Payment) models.Payment {
	var out models.Payment
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		in.ID = s.newID()
		in.CreatedAt = now
		in.UpdatedAt = nil
		in.ProjectID = models.Ref(models.RefID(in.ProjectID))
		if in.Status == "" {
			in.Status = models.PaymentPending
		}
		in.PaidAt = nil
		in.SetStatus(in.Status, now)
		doc.Payments = append(doc.Payments, in)
		out = in.Clone()
		return Change{Op: OpCreated, Collection: Payments, IDs: []string{in.ID}}, true
	})
	return out
}

func (s *Store) UpdatePayment(id string, patch models.PaymentPatch) (models.Payment, error) {
	var out models.Payment
	var err error
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		i := indexOf(doc.Payments, id, paymentID)
		if i < 0 {
			err = fmt.Errorf("payment %s: %w", id, apperr.ErrNotFound)
			return Change{}, false
		}
		patch.Apply(&doc.Payments[i], now)
		out = doc.Payments[i].Clone()
		return Change{Op: OpUpdated, Collection: Payments, IDs: []string{id}}, true
	})
	return out, err
}

func (s *Store) DeletePayment(id string) error {
	var err error
	s.mutate(func(doc *models.Document, _ time.Time) (Change, bool) {
		i := indexOf(doc.Payments, id, paymentID)
		if i < 0 {
			err = fmt.Errorf("payment %s: %w", id, apperr.ErrNotFound)
			return Change{}, false
		}
		doc.Payments = append(doc.Payments[:i], doc.Payments[i+1:]...)
		return Change{Op: OpDeleted, Collection: Payments, IDs: []string{id}}, true
	})
	return err
}

func (s *Store) GetPayment(id string) (models.Payment, bool) {
	var out models.Payment
	var ok bool
	s.view(func(doc *models.Document) {
		if i := indexOf(doc.Payments, id, paymentID); i >= 0 {
			out, ok = doc.Payments[i].Clone(), true
		}
	})
	return out, ok
}

func (s *Store) ListPayments(projectID string) []models.Payment {
	out := []models.Payment{}
	s.view(func(doc *models.Document) {
		for _, p := range doc.Payments {
			if projectID == "" || models.RefID(p.ProjectID) == projectID {
				out = append(out, p.Clone())
			}
		}
	})
	return out
}
