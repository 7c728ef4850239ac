package models

import "time"

// Payment is an invoice, payment, expense or refund.
type Payment struct {
	ID            string        `json:"id"`
	Description   string        `json:"description"`
	Amount        Number        `json:"amount"`
	ProjectID     *string       `json:"projectId"`
	Date          string        `json:"date,omitempty"`
	DueDate       string        `json:"dueDate,omitempty"`
	Status        PaymentStatus `json:"status"`
	Type          PaymentType   `json:"type,omitempty"`
	InvoiceNumber string        `json:"invoiceNumber,omitempty"`
	ClientName    string        `json:"clientName,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     *time.Time    `json:"updatedAt,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
}

func (p Payment) Clone() Payment {
	p.ProjectID = cloneString(p.ProjectID)
	p.UpdatedAt = cloneTime(p.UpdatedAt)
	p.PaidAt = cloneTime(p.PaidAt)
	return p
}

// SetStatus changes the status and keeps PaidAt present exactly while the
// payment is Paid.
func (p *Payment) SetStatus(s PaymentStatus, now time.Time) {
	p.Status = s
	if s == PaymentPaid {
		if p.PaidAt == nil {
			p.PaidAt = &now
		}
		return
	}
	p.PaidAt = nil
}

type PaymentPatch struct {
	Description   *string        `json:"description,omitempty"`
	Amount        *Number        `json:"amount,omitempty"`
	ProjectID     *string        `json:"projectId,omitempty"`
	Date          *string        `json:"date,omitempty"`
	DueDate       *string        `json:"dueDate,omitempty"`
	Status        *PaymentStatus `json:"status,omitempty"`
	Type          *PaymentType   `json:"type,omitempty"`
	InvoiceNumber *string        `json:"invoiceNumber,omitempty"`
	ClientName    *string        `json:"clientName,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
}

// Apply merges the patch into p and stamps UpdatedAt.
func (pp PaymentPatch) Apply(p *Payment, now time.Time) {
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Amount != nil {
		p.Amount = *pp.Amount
	}
	applyRef(&p.ProjectID, pp.ProjectID)
	if pp.Date != nil {
		p.Date = *pp.Date
	}
	if pp.DueDate != nil {
		p.DueDate = *pp.DueDate
	}
	if pp.Type != nil {
		p.Type = *pp.Type
	}
	if pp.InvoiceNumber != nil {
		p.InvoiceNumber = *pp.InvoiceNumber
	}
	if pp.ClientName != nil {
		p.ClientName = *pp.ClientName
	}
	if pp.Notes != nil {
		p.Notes = *pp.Notes
	}
	if pp.Status != nil {
		p.SetStatus(*pp.Status, now)
	}
	p.UpdatedAt = &now
}
