package points

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceRequest asks the tax invoice service to issue an invoice for a
// credited charge request
type InvoiceRequest struct {
	ChargeRequestID uuid.UUID
	CompanyID       uuid.UUID
	Amount          int64
	InvoiceData     InvoiceData
	WriteDate       time.Time
}

// InvoiceRequestFor builds the invoice request of a completed charge
func InvoiceRequestFor(r *ChargeRequest) InvoiceRequest {
	written := time.Now()
	if r.ConfirmedAt != nil {
		written = *r.ConfirmedAt
	}
	return InvoiceRequest{
		ChargeRequestID: r.ID,
		CompanyID:       r.CompanyID,
		Amount:          r.Amount,
		InvoiceData:     r.InvoiceData,
		WriteDate:       written,
	}
}

// TaxInvoiceIssuer issues tax invoices. It is called after the ledger
// transaction commits and its failures never undo the credit.
type TaxInvoiceIssuer interface {
	Issue(ctx context.Context, req InvoiceRequest) (*InvoiceReceipt, error)
}

// InvoiceReceipt identifies an issued invoice
type InvoiceReceipt struct {
	MgtKey      string
	SupplyCost  int64
	Tax         int64
	TotalAmount int64
}
