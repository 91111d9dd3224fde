package notification

import (
	"html"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Korean)

// FormatAmount formats points or won with thousands separators
func FormatAmount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatDate formats a template date, or "-" when unset
func FormatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	if loc != nil {
		return t.In(loc).Format("2006-01-02")
	}
	return t.Format("2006-01-02")
}

// Template codes registered with the IM provider
const (
	TemplateChargeRequested   = "025100000918"
	TemplatePointsCharged     = "025100000943"
	TemplateCampaignActivated = "025100001005"
	TemplateRecruitmentClosed = "025100001006"
	TemplateCampaignSubmitted = "025100001010"
)

// Variable names used by the templates
const (
	VarCompanyName    = "회사명"
	VarCampaignName   = "캠페인명"
	VarStartDate      = "시작일"
	VarDeadline       = "마감일"
	VarSlots          = "모집인원"
	VarPoints         = "포인트"
	VarAmount         = "금액"
	VarApplicantCount = "지원자수"
)

// Template is the text of a registered message. Placeholders use the
// provider's #{name} syntax.
type Template struct {
	Code    string
	Subject string
	Body    string
}

var templates = map[string]Template{
	TemplateChargeRequested: {
		Code:    TemplateChargeRequested,
		Subject: "[CNEC] 포인트 충전 입금 안내",
		Body:    "#{회사명}님, 포인트 충전 신청이 접수되었습니다.\n입금 금액: #{금액}원\n입금 확인 후 포인트가 충전됩니다.",
	},
	TemplatePointsCharged: {
		Code:    TemplatePointsCharged,
		Subject: "[CNEC] 포인트 충전 완료",
		Body:    "#{회사명}님, 포인트 충전이 완료되었습니다.\n충전 포인트: #{포인트}P",
	},
	TemplateCampaignActivated: {
		Code:    TemplateCampaignActivated,
		Subject: "[CNEC] 캠페인 승인 완료",
		Body:    "#{회사명}님, #{캠페인명} 캠페인이 승인되었습니다.\n캠페인 기간: #{시작일} ~ #{마감일}\n모집 인원: #{모집인원}명",
	},
	TemplateRecruitmentClosed: {
		Code:    TemplateRecruitmentClosed,
		Subject: "[CNEC] 캠페인 모집 마감",
		Body:    "#{회사명}님, #{캠페인명} 캠페인 모집이 마감되었습니다.\n총 지원자 수: #{지원자수}명",
	},
	TemplateCampaignSubmitted: {
		Code:    TemplateCampaignSubmitted,
		Subject: "[CNEC] 캠페인 검수 신청 접수",
		Body:    "#{회사명}님, #{캠페인명} 캠페인 검수 신청이 접수되었습니다.\n검수 완료 후 승인 여부를 알려드리겠습니다.",
	},
}

// LookupTemplate returns the template registered under code
func LookupTemplate(code string) (Template, bool) {
	t, ok := templates[code]
	return t, ok
}

// Render substitutes vars into the body. Unknown placeholders are left as is.
func (t Template) Render(vars map[string]string) string {
	out := t.Body
	for k, v := range vars {
		out = strings.ReplaceAll(out, "#{"+k+"}", v)
	}
	return out
}

// RenderHTML renders the body as escaped HTML paragraphs for email
func (t Template) RenderHTML(vars map[string]string) string {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(strings.TrimPrefix(t.Subject, "[CNEC] ")))
	b.WriteString("</h2>")
	for _, line := range strings.Split(t.Render(vars), "\n") {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}

// NewTemplateEvent builds an event for a registered template, filling the
// fallback text and the email body from the template.
func NewTemplateEvent(code, phone, email, name string, vars map[string]string, key string) Event {
	e := Event{
		ReceiverContact: phone,
		ReceiverEmail:   email,
		ReceiverName:    name,
		TemplateCode:    code,
		Variables:       vars,
		IdempotencyKey:  key,
	}
	if t, ok := LookupTemplate(code); ok {
		e.SMSText = t.Render(vars)
		e.EmailSubject = t.Subject
		e.EmailHTML = t.RenderHTML(vars)
	}
	return e
}
