// Package taxinvoice issues electronic tax invoices for credited point
// charges through the invoicing provider.
package taxinvoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxResponseSize = 1 << 20
	defaultItemName = "포인트 충전"
	defaultRemark   = "CNEC 포인트 충전"
)

// Split separates a VAT-inclusive total into supply cost and tax. The supply
// cost is rounded to the nearest won and the tax takes the remainder, so the
// two always add up to total.
func Split(total int64, vatRate float64) (supply, tax int64) {
	divisor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(vatRate))
	supply = decimal.NewFromInt(total).Div(divisor).Round(0).IntPart()
	return supply, total - supply
}

// Client issues invoices through the provider's HTTP API
type Client struct {
	baseURL    string
	apiKey     string
	corpNum    string
	rate       float64
	enabled    bool
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a tax invoice client
func NewClient(cfg config.TaxInvoiceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		corpNum:    strings.ReplaceAll(cfg.CorpNum, "-", ""),
		rate:       cfg.VATRate,
		enabled:    cfg.Enabled && cfg.BaseURL != "",
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Document is the invoice sent to the provider
type Document struct {
	MgtKey          string       `json:"invoicerMgtKey"`
	WriteDate       string       `json:"writeDate"`
	PurposeType     string       `json:"purposeType"`
	TaxType         string       `json:"taxType"`
	InvoicerCorpNum string       `json:"invoicerCorpNum"`
	InvoiceeCorpNum string       `json:"invoiceeCorpNum"`
	InvoiceeName    string       `json:"invoiceeCorpName"`
	InvoiceeCEO     string       `json:"invoiceeCEOName,omitempty"`
	InvoiceeAddr    string       `json:"invoiceeAddr,omitempty"`
	InvoiceeEmail   string       `json:"invoiceeEmail1,omitempty"`
	SupplyCostTotal string       `json:"supplyCostTotal"`
	TaxTotal        string       `json:"taxTotal"`
	TotalAmount     string       `json:"totalAmount"`
	Details         []DetailLine `json:"detailList"`
	Remark          string       `json:"remark1,omitempty"`
}

// DetailLine is one item row of the invoice
type DetailLine struct {
	SerialNum  int    `json:"serialNum"`
	PurchaseDT string `json:"purchaseDT"`
	ItemName   string `json:"itemName"`
	Qty        string `json:"qty"`
	UnitCost   string `json:"unitCost"`
	SupplyCost string `json:"supplyCost"`
	Tax        string `json:"tax"`
}

type providerResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BuildDocument turns a request into the provider document. The invoicee's
// business number is required.
func (c *Client) BuildDocument(req points.InvoiceRequest) (*Document, error) {
	bizNum := strings.ReplaceAll(stringField(req.InvoiceData, "business_number"), "-", "")
	if bizNum == "" {
		return nil, shared.NewValidationError("invoice data has no business number")
	}
	if req.Amount <= 0 {
		return nil, shared.NewValidationError("invoice amount must be positive")
	}

	supply, tax := Split(req.Amount, c.rate)
	writeDate := req.WriteDate
	if writeDate.IsZero() {
		writeDate = c.now()
	}
	date := writeDate.Format("20060102")
	itemName := stringField(req.InvoiceData, "item_name")
	if itemName == "" {
		itemName = defaultItemName
	}

	return &Document{
		MgtKey:          mgtKey(c.now(), req.ChargeRequestID),
		WriteDate:       date,
		PurposeType:     "영수",
		TaxType:         "과세",
		InvoicerCorpNum: c.corpNum,
		InvoiceeCorpNum: bizNum,
		InvoiceeName:    stringField(req.InvoiceData, "company_name"),
		InvoiceeCEO:     stringField(req.InvoiceData, "ceo_name"),
		InvoiceeAddr:    stringField(req.InvoiceData, "address"),
		InvoiceeEmail:   stringField(req.InvoiceData, "email"),
		SupplyCostTotal: fmt.Sprint(supply),
		TaxTotal:        fmt.Sprint(tax),
		TotalAmount:     fmt.Sprint(req.Amount),
		Details: []DetailLine{{
			SerialNum:  1,
			PurchaseDT: date,
			ItemName:   itemName,
			Qty:        "1",
			UnitCost:   fmt.Sprint(supply),
			SupplyCost: fmt.Sprint(supply),
			Tax:        fmt.Sprint(tax),
		}},
		Remark: defaultRemark,
	}, nil
}

// Issue registers and issues one invoice
func (c *Client) Issue(ctx context.Context, req points.InvoiceRequest) (*points.InvoiceReceipt, error) {
	if !c.enabled {
		return nil, shared.NewConfigurationError("tax invoice provider is not configured")
	}
	doc, err := c.BuildDocument(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("taxinvoice: failed to marshal document: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/taxinvoice/issue", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("taxinvoice: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, shared.NewExternalServiceError("taxinvoice", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, shared.NewExternalServiceError("taxinvoice", err)
	}
	if resp.StatusCode >= 400 {
		return nil, shared.NewExternalServiceError("taxinvoice", fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	var pr providerResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &pr); err != nil {
			return nil, shared.NewExternalServiceError("taxinvoice", err)
		}
	}
	if pr.Code != 0 {
		return nil, shared.NewExternalServiceError("taxinvoice", fmt.Errorf("provider error %d: %s", pr.Code, pr.Message))
	}

	supply, tax := Split(req.Amount, c.rate)
	return &points.InvoiceReceipt{
		MgtKey:      doc.MgtKey,
		SupplyCost:  supply,
		Tax:         tax,
		TotalAmount: req.Amount,
	}, nil
}

// mgtKey is the invoicer's document number: timestamp plus a suffix of the
// charge request id, 18 characters
func mgtKey(now time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:4]
	return now.UTC().Format("20060102150405") + suffix
}

func stringField(data points.InvoiceData, key string) string {
	if data == nil {
		return ""
	}
	if s, ok := data[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

var _ points.TaxInvoiceIssuer = (*Client)(nil)
