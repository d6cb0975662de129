package reminders

import (
	"fmt"
	"strings"
	"time"

	"github.com/k3a/html2text"
)

// Kind selects the notification template and colour theme.
type Kind string

const (
	// KindReminderDue covers an asset/CRC obligation whose annual date arrived.
	KindReminderDue Kind = "reminder_due"
	// KindTransactionSaved confirms a recorded borrow/return transaction.
	KindTransactionSaved Kind = "transaction_saved"
	// KindSystemAlert flags a critical operational condition.
	KindSystemAlert Kind = "system_alert"
)

// pushBodyLimit caps the push notification body length in runes.
const pushBodyLimit = 100

// Data carries the business fields interpolated into templates. Only the
// fields relevant to the kind need to be set.
type Data struct {
	SubjectName     string
	DueDayMonth     string
	StaffCode       string
	AssetYear       int
	AssetCode       int
	Room            string
	TransactionType string
	TransactionDate time.Time
	PartsDay        string
	Message         string
}

// Content is the composed multi-channel payload. Push and in-app variants
// are plain-text renderings of the same semantic content as the email body.
type Content struct {
	EmailSubject string
	EmailHTML    string
	PushTitle    string
	PushBody     string
	InAppMessage string
}

type theme struct {
	accent string
	banner string
}

var themes = map[Kind]theme{
	KindReminderDue:      {accent: "#ef6c00", banner: "Nhắc việc đến hạn"},
	KindTransactionSaved: {accent: "#2e7d32", banner: "Giao dịch đã ghi nhận"},
	KindSystemAlert:      {accent: "#c62828", banner: "Cảnh báo hệ thống"},
}

// Compose renders the channel payloads for the given kind and data. It has
// no side effects and performs no I/O.
func Compose(kind Kind, data Data) Content {
	th, ok := themes[kind]
	if !ok {
		th = themes[KindSystemAlert]
	}

	subject, body := renderBody(kind, data)
	html := wrapHTML(th, subject, body)
	plain := html2text.HTML2Text(html)

	return Content{
		EmailSubject: subject,
		EmailHTML:    html,
		PushTitle:    th.banner,
		PushBody:     truncateRunes(plain, pushBodyLimit),
		InAppMessage: plain,
	}
}

func renderBody(kind Kind, data Data) (subject string, rows []string) {
	switch kind {
	case KindReminderDue:
		subject = fmt.Sprintf("Nhắc việc: %s (hạn %s)", data.SubjectName, data.DueDayMonth)
		rows = []string{
			row("Nội dung", data.SubjectName),
			row("Ngày đến hạn", data.DueDayMonth),
		}
	case KindTransactionSaved:
		subject = fmt.Sprintf("Đã ghi nhận giao dịch hồ sơ %02d/%d", data.AssetYear, data.AssetCode)
		rows = []string{
			row("Mã hồ sơ", fmt.Sprintf("%02d/%d", data.AssetYear, data.AssetCode)),
			row("Cán bộ", data.StaffCode),
			row("Loại giao dịch", data.TransactionType),
			row("Ngày", data.TransactionDate.Format("02/01/2006")),
			row("Buổi", data.PartsDay),
			row("Phòng", data.Room),
		}
	default:
		subject = "Cảnh báo hệ thống"
		rows = []string{row("Chi tiết", data.Message)}
	}

	if data.Message != "" && kind != KindSystemAlert {
		rows = append(rows, row("Ghi chú", data.Message))
	}
	return subject, rows
}

func row(label, value string) string {
	return fmt.Sprintf(
		`<tr><td style="padding:4px 12px 4px 0;color:#555;">%s</td><td style="padding:4px 0;font-weight:600;">%s</td></tr>`,
		label, value,
	)
}

func wrapHTML(th theme, subject string, rows []string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;max-width:560px;margin:0 auto;">`)
	fmt.Fprintf(&b, `<div style="background:%s;color:#fff;padding:12px 16px;border-radius:6px 6px 0 0;font-size:16px;font-weight:700;">%s</div>`, th.accent, th.banner)
	fmt.Fprintf(&b, `<div style="border:1px solid %s;border-top:none;padding:16px;border-radius:0 0 6px 6px;">`, th.accent)
	fmt.Fprintf(&b, `<p style="margin-top:0;">%s</p>`, subject)
	b.WriteString(`<table style="border-collapse:collapse;">`)
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString(`</table></div></div>`)
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
