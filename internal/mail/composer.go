package mail

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"gopkg.in/gomail.v2"
)

// Draft is a pre-filled reimbursement request email. The report artifact is
// attached by the user; composition here never sends anything.
type Draft struct {
	To      string `json:"to"`
	CC      string `json:"cc"`
	BCC     string `json:"bcc"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Composer builds drafts with the company's billing addresses.
type Composer struct {
	to string
	cc string
}

// NewComposer creates a Composer with the default To/CC recipients.
func NewComposer(to, cc string) *Composer {
	return &Composer{to: to, cc: cc}
}

// BuildDraft fills a draft from the expense date range and the employee
// name.
func (c *Composer) BuildDraft(name string, first, last time.Time) Draft {
	body := fmt.Sprintf(
		"Hello,\n\nHere are my expenses from %s to %s.\n\nBest,\n%s\n\nPowered by Cape Cash",
		first.Format("1/2/2006"), last.Format("1/2/2006"), name,
	)
	return Draft{
		To:      c.to,
		CC:      c.cc,
		BCC:     "",
		Subject: "Expense Reimbursement Request",
		Body:    body,
	}
}

// GmailURL returns a Gmail compose link pre-filled from the draft.
func (d Draft) GmailURL() string {
	q := url.Values{}
	q.Set("view", "cm")
	q.Set("fs", "1")
	q.Set("to", d.To)
	q.Set("cc", d.CC)
	q.Set("bcc", d.BCC)
	q.Set("su", d.Subject)
	q.Set("body", d.Body)
	return "https://mail.google.com/mail/?" + q.Encode()
}

// EML renders the draft as an RFC 822 message the user can open in any mail
// client and attach the report to.
func (d Draft) EML(from string) ([]byte, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", d.To)
	if d.CC != "" {
		m.SetHeader("Cc", d.CC)
	}
	if d.BCC != "" {
		m.SetHeader("Bcc", d.BCC)
	}
	m.SetHeader("Subject", d.Subject)
	m.SetBody("text/plain", d.Body)

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing message: %w", err)
	}
	return buf.Bytes(), nil
}
