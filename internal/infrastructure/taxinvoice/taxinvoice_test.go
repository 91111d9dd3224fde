package taxinvoice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(config.TaxInvoiceConfig{
		ProviderConfig: config.ProviderConfig{Enabled: true, BaseURL: baseURL, APIKey: "key", Timeout: time.Second},
		CorpNum:        "111-22-33333",
		VATRate:        0.1,
	})
	c.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return c
}

func sampleRequest() points.InvoiceRequest {
	return points.InvoiceRequest{
		ChargeRequestID: uuid.MustParse("abcdef12-0000-0000-0000-000000000000"),
		CompanyID:       uuid.New(),
		Amount:          110000,
		InvoiceData: points.InvoiceData{
			"business_number": "123-45-67890",
			"company_name":    "Glow Lab",
			"ceo_name":        "Park",
			"email":           "tax@glow.example",
		},
		WriteDate: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		total, supply, tax int64
	}{
		{110000, 100000, 10000},
		{100000, 90909, 9091},
		{10000, 9091, 909},
		{1, 1, 0},
	}
	for _, tt := range tests {
		supply, tax := Split(tt.total, 0.1)
		assert.Equal(t, tt.supply, supply, "supply of %d", tt.total)
		assert.Equal(t, tt.tax, tax, "tax of %d", tt.total)
		assert.Equal(t, tt.total, supply+tax)
	}
}

func TestBuildDocument(t *testing.T) {
	c := newTestClient("http://invoice.test")

	doc, err := c.BuildDocument(sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "20250304050607ABCD", doc.MgtKey)
	assert.Equal(t, "20250304", doc.WriteDate)
	assert.Equal(t, "1112233333", doc.InvoicerCorpNum)
	assert.Equal(t, "1234567890", doc.InvoiceeCorpNum)
	assert.Equal(t, "100000", doc.SupplyCostTotal)
	assert.Equal(t, "10000", doc.TaxTotal)
	assert.Equal(t, "110000", doc.TotalAmount)
	require.Len(t, doc.Details, 1)
	assert.Equal(t, "포인트 충전", doc.Details[0].ItemName)
	assert.Equal(t, "CNEC 포인트 충전", doc.Remark)
}

func TestBuildDocument_RequiresBusinessNumber(t *testing.T) {
	c := newTestClient("http://invoice.test")
	req := sampleRequest()
	req.InvoiceData = points.InvoiceData{"company_name": "Glow Lab"}

	_, err := c.BuildDocument(req)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestIssue(t *testing.T) {
	var got Document
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/taxinvoice/issue", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"code":0,"message":"ok"}`))
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv.URL).Issue(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(100000), receipt.SupplyCost)
	assert.Equal(t, int64(10000), receipt.Tax)
	assert.Equal(t, got.MgtKey, receipt.MgtKey)
	assert.Equal(t, "Glow Lab", got.InvoiceeName)
}

func TestIssue_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusBadGateway, ""},
		{"provider code", http.StatusOK, `{"code":-11000001,"message":"duplicate mgtKey"}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Issue(context.Background(), sampleRequest())
			assert.ErrorIs(t, err, shared.ErrExternalService)
		})
	}
}

func TestIssue_Disabled(t *testing.T) {
	c := NewClient(config.TaxInvoiceConfig{VATRate: 0.1})
	_, err := c.Issue(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}
