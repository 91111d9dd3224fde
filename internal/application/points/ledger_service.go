package points

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultInvoiceTimeout bounds the post-commit tax invoice call
const DefaultInvoiceTimeout = 30 * time.Second

// Reader gives read access to the central ledger tables outside a transaction
type Reader struct {
	ChargeRequests points.ChargeRequestRepository
	Transactions   points.TransactionRepository
	Balances       points.BalanceRepository
}

// LedgerService owns every balance change. Each change writes the ledger
// entry, the balance and the outbox event in one central store transaction,
// so the balance always equals the sum of the ledger.
type LedgerService struct {
	scope          TransactionScope
	reader         Reader
	issuer         points.TaxInvoiceIssuer
	minAmount      int64
	invoiceTimeout time.Duration
	metrics        *telemetry.DomainMetrics
	logger         *zap.Logger
}

// LedgerOption configures a LedgerService
type LedgerOption func(*LedgerService)

// WithTaxInvoiceIssuer issues a tax invoice after each confirmed charge
func WithTaxInvoiceIssuer(issuer points.TaxInvoiceIssuer) LedgerOption {
	return func(s *LedgerService) {
		s.issuer = issuer
	}
}

// WithLedgerMetrics counts credited and debited points
func WithLedgerMetrics(m *telemetry.DomainMetrics) LedgerOption {
	return func(s *LedgerService) {
		s.metrics = m
	}
}

// WithMinChargeAmount overrides the smallest accepted charge
func WithMinChargeAmount(amount int64) LedgerOption {
	return func(s *LedgerService) {
		if amount > 0 {
			s.minAmount = amount
		}
	}
}

// NewLedgerService creates a ledger service over the central store
func NewLedgerService(scope TransactionScope, reader Reader, logger *zap.Logger, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		scope:          scope,
		reader:         reader,
		minAmount:      points.DefaultMinChargeAmount,
		invoiceTimeout: DefaultInvoiceTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charge records a pending charge request. The balance does not change
// until an admin confirms the payment.
func (s *LedgerService) Charge(ctx context.Context, in ChargeInput) (*ChargeRequestResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "points", "charge",
		attribute.String("company_id", in.CompanyID.String()),
		attribute.Int64("amount", in.Amount),
	)
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	req, err := points.NewChargeRequest(in.CompanyID, in.Amount, in.PaymentMethod, in.DepositorName, in.InvoiceData, s.minAmount)
	if err != nil {
		return nil, err
	}
	if _, err = s.reader.Balances.Get(ctx, in.CompanyID); err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.ChargeRequestRepo().Create(ctx, req); err != nil {
			return err
		}
		return repos.Outbox().Publish(ctx, req.GetDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}
	req.ClearDomainEvents()

	s.logger.Info("charge request created",
		zap.String("charge_request_id", req.ID.String()),
		zap.String("company_id", req.CompanyID.String()),
		zap.Int64("amount", req.Amount),
		zap.String("payment_method", string(req.PaymentMethod)),
	)
	resp := ToChargeRequestResponse(req)
	return &resp, nil
}

// Confirm credits a pending charge request exactly once. The status flip
// is a conditional update, so a second confirmation, concurrent or not,
// fails with CONFLICT and credits nothing.
func (s *LedgerService) Confirm(ctx context.Context, chargeRequestID uuid.UUID, adminNote string) (*ConfirmResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "points", "confirm",
		attribute.String("charge_request_id", chargeRequestID.String()))
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	var (
		req          *points.ChargeRequest
		balanceAfter int64
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ChargeRequestRepo().FindByID(ctx, chargeRequestID)
		if err != nil {
			return err
		}
		if err := r.Complete(adminNote); err != nil {
			return err
		}
		if err := repos.ChargeRequestRepo().TransitionFromPending(ctx, r); err != nil {
			return err
		}

		ref := r.ID
		entry, err := points.NewTransaction(r.CompanyID, points.TransactionTypeCharge, r.Amount,
			fmt.Sprintf("포인트 충전 (%s)", r.PaymentMethod), &ref)
		if err != nil {
			return err
		}
		if err := repos.TransactionRepo().Append(ctx, entry); err != nil {
			return err
		}

		balance, err := repos.BalanceRepo().Apply(ctx, r.CompanyID, r.Amount)
		if err != nil {
			return err
		}
		for _, e := range r.GetDomainEvents() {
			if charged, ok := e.(*points.PointsChargedEvent); ok {
				charged.BalanceAfter = balance
			}
		}
		if err := repos.Outbox().Publish(ctx, r.GetDomainEvents()...); err != nil {
			return err
		}
		req, balanceAfter = r, balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	req.ClearDomainEvents()
	s.metrics.RecordPoints(ctx, string(points.TransactionTypeCharge), req.Amount)

	s.logger.Info("charge request confirmed",
		zap.String("charge_request_id", req.ID.String()),
		zap.String("company_id", req.CompanyID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance_after", balanceAfter),
	)

	result := &ConfirmResult{
		ChargeRequest: ToChargeRequestResponse(req),
		BalanceAfter:  balanceAfter,
	}
	if receipt := s.issueInvoice(ctx, req); receipt != nil {
		result.InvoiceIssued = true
		result.InvoiceMgtKey = receipt.MgtKey
	}
	return result, nil
}

// issueInvoice runs after commit. Its failures are logged and never undo
// the credit.
func (s *LedgerService) issueInvoice(ctx context.Context, req *points.ChargeRequest) *points.InvoiceReceipt {
	if s.issuer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.invoiceTimeout)
	defer cancel()

	receipt, err := s.issuer.Issue(ctx, points.InvoiceRequestFor(req))
	if err != nil {
		s.logger.Warn("tax invoice issuance failed, charge stays credited",
			zap.String("charge_request_id", req.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	s.logger.Info("tax invoice issued",
		zap.String("charge_request_id", req.ID.String()),
		zap.String("mgt_key", receipt.MgtKey),
		zap.Int64("supply_cost", receipt.SupplyCost),
		zap.Int64("tax", receipt.Tax),
	)
	return receipt
}

// Cancel withdraws a pending charge request on behalf of its company
func (s *LedgerService) Cancel(ctx context.Context, chargeRequestID, companyID uuid.UUID) (*ChargeRequestResponse, error) {
	var req *points.ChargeRequest
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ChargeRequestRepo().FindByID(ctx, chargeRequestID)
		if err != nil {
			return err
		}
		if err := r.Cancel(companyID); err != nil {
			return err
		}
		if err := repos.ChargeRequestRepo().TransitionFromPending(ctx, r); err != nil {
			return err
		}
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("charge request cancelled",
		zap.String("charge_request_id", req.ID.String()),
		zap.String("company_id", companyID.String()),
	)
	resp := ToChargeRequestResponse(req)
	return &resp, nil
}

// AdminAdjust grants (delta > 0) or deducts (delta < 0) points. A deduction
// that would take the balance below zero fails with INSUFFICIENT_BALANCE.
func (s *LedgerService) AdminAdjust(ctx context.Context, companyID uuid.UUID, delta int64, reason string) (*AdjustResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "points", "admin_adjust",
		attribute.String("company_id", companyID.String()),
		attribute.Int64("delta", delta),
	)
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		err = shared.NewValidationError("a reason is required for a points adjustment")
		return nil, err
	}
	entry, err := points.NewTransaction(companyID, points.AdjustmentType(delta), delta, reason, nil)
	if err != nil {
		return nil, err
	}

	var balanceAfter int64
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		balance, err := repos.BalanceRepo().Apply(ctx, companyID, delta)
		if err != nil {
			return err
		}
		if err := repos.TransactionRepo().Append(ctx, entry); err != nil {
			return err
		}
		balanceAfter = balance
		return repos.Outbox().Publish(ctx, points.NewPointsAdjustedEvent(entry, balance))
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPoints(ctx, string(entry.Type), delta)

	s.logger.Info("points adjusted",
		zap.String("company_id", companyID.String()),
		zap.Int64("delta", delta),
		zap.Int64("balance_after", balanceAfter),
		zap.String("reason", reason),
	)
	return &AdjustResult{Transaction: ToTransactionResponse(entry), BalanceAfter: balanceAfter}, nil
}

// Balance returns the company's balance and one page of its ledger
func (s *LedgerService) Balance(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*BalanceView, error) {
	balance, err := s.reader.Balances.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	entries, total, err := s.reader.Transactions.FindByCompany(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	view := &BalanceView{
		CompanyID:    companyID,
		Balance:      balance,
		Transactions: make([]TransactionResponse, len(entries)),
		Total:        total,
		Page:         max(filter.Page, 1),
		PageSize:     filter.Limit(),
	}
	for i, e := range entries {
		view.Transactions[i] = ToTransactionResponse(e)
	}
	return view, nil
}

// ChargeRequests lists a company's charge requests, newest first
func (s *LedgerService) ChargeRequests(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (shared.Paginated[ChargeRequestResponse], error) {
	rows, total, err := s.reader.ChargeRequests.FindByCompany(ctx, companyID, filter)
	if err != nil {
		return shared.Paginated[ChargeRequestResponse]{}, err
	}
	items := make([]ChargeRequestResponse, len(rows))
	for i, r := range rows {
		items[i] = ToChargeRequestResponse(r)
	}
	return shared.NewPaginated(items, total, max(filter.Page, 1), filter.Limit()), nil
}

// Reconcile compares the cached balance with the ledger sum
func (s *LedgerService) Reconcile(ctx context.Context, companyID uuid.UUID) (balance, ledger int64, err error) {
	balance, err = s.reader.Balances.Get(ctx, companyID)
	if err != nil {
		return 0, 0, err
	}
	ledger, err = s.reader.Transactions.SumByCompany(ctx, companyID)
	if err != nil {
		return 0, 0, err
	}
	if balance != ledger {
		s.logger.Error("points balance does not match ledger",
			zap.String("company_id", companyID.String()),
			zap.Int64("balance", balance),
			zap.Int64("ledger", ledger),
		)
	}
	return balance, ledger, nil
}
