package handler_test

import (
	"net/http"
	"testing"

	appcompany "github.com/cnec/backend/internal/application/company"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const approveCompanyPath = "/api/v1/admin/companies/approve"

func TestApproveCompany(t *testing.T) {
	tests := []struct {
		name    string
		approve bool
		message string
	}{
		{"approve", true, "Company approved"},
		{"withdraw", false, "Company approval withdrawn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newAPI(t)
			id := uuid.New()
			api.approver.On("SetApproval", mock.Anything, id, tt.approve).Return(&appcompany.ApprovalResult{
				CompanyID: id, Email: "hq@brand.com", IsApproved: tt.approve, Changed: true,
			}, nil).Once()

			w := testutil.PerformRequest(t, api.engine, http.MethodPost, approveCompanyPath,
				map[string]any{"companyId": id.String(), "approve": tt.approve}, api.admin(t))

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.message, testutil.DecodeEnvelope(t, w).Message)
			got := testutil.DecodeData[appcompany.ApprovalResult](t, w)
			assert.Equal(t, id, got.CompanyID)
			assert.Equal(t, tt.approve, got.IsApproved)
		})
	}
}

func TestApproveCompany_Rejects(t *testing.T) {
	api := newAPI(t)
	id := uuid.New()

	// approve is required, false included
	w := testutil.PerformRequest(t, api.engine, http.MethodPost, approveCompanyPath,
		map[string]any{"companyId": id.String()}, api.admin(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, approveCompanyPath,
		map[string]any{"companyId": "nope", "approve": true}, api.admin(t))
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, shared.CodeInvalidInput)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, approveCompanyPath,
		map[string]any{"companyId": id.String(), "approve": true}, api.company(t))
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, shared.CodeForbidden)

	api.approver.On("SetApproval", mock.Anything, id, true).
		Return(nil, shared.NewNotFoundError("company not found")).Once()
	w = testutil.PerformRequest(t, api.engine, http.MethodPost, approveCompanyPath,
		map[string]any{"companyId": id.String(), "approve": true}, api.admin(t))
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, shared.CodeNotFound)
}
