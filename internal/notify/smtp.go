package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

// SMTPMailer delivers email over plain SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer constructs the mailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendMaterialRequestApproved emails every recipient the approved request
// summary with its item table.
func (m *SMTPMailer) SendMaterialRequestApproved(ctx context.Context, msg MaterialRequestApprovedMessage) error {
	if len(msg.Recipients) == 0 {
		return nil
	}
	subject := fmt.Sprintf("Material request #%d approved", msg.RequestID)
	body := approvedRequestBody(msg)
	return m.send(ctx, msg.Recipients, subject, body)
}

// SendTempPassword emails a temporary password to one user.
func (m *SMTPMailer) SendTempPassword(ctx context.Context, msg TempPasswordMessage) error {
	subject := "Temporary password"
	body := fmt.Sprintf(`<p>Hello!</p>
<p>An administrator set a temporary password for your account:</p>
<h2>%s</h2>
<p>You will be asked to change it on first login.</p>
<p>If you did not request access, contact your administrator.</p>`, msg.TempPassword)
	return m.send(ctx, []string{msg.Recipient}, subject, body)
}

func approvedRequestBody(msg MaterialRequestApprovedMessage) string {
	var rows strings.Builder
	if len(msg.Items) == 0 {
		rows.WriteString(`<tr><td colspan="4">No items</td></tr>`)
	}
	for i, item := range msg.Items {
		comment := item.Comment
		if comment == "" {
			comment = "-"
		}
		fmt.Fprintf(&rows, `<tr><td>%d</td><td>%s</td><td>%g %s</td><td>%s</td></tr>`,
			i+1, item.MaterialName, item.Quantity, item.UnitName, comment)
	}
	comment := msg.Comment
	if comment == "" {
		comment = "-"
	}
	return fmt.Sprintf(`<p>Hello!</p>
<p>A material request has been <b>fully approved</b> and is ready for purchasing.</p>
<p><b>Request ID:</b> %d<br/><b>Project:</b> %s<br/><b>Comment:</b> %s</p>
<h3>Request items</h3>
<table border="1" cellpadding="6" cellspacing="0">
<thead><tr><th>#</th><th>Material</th><th>Quantity</th><th>Comment</th></tr></thead>
<tbody>%s</tbody>
</table>
<p>Please open the system to place the purchase order.</p>
<p style="font-size:12px;color:#888;">This message was generated automatically by DreamHouse.</p>`,
		msg.RequestID, msg.ProjectName, comment, rows.String())
}

func (m *SMTPMailer) send(ctx context.Context, to []string, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	headers := fmt.Sprintf("From: DreamHouse <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n",
		m.cfg.From, strings.Join(to, ", "), subject)
	return smtp.SendMail(addr, auth, m.cfg.From, to, []byte(headers+htmlBody))
}
