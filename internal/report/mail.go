package report

import (
	"fmt"
	"net/smtp"
	"strings"
)

// MailHost is the relay the report is handed to, matching the cron-host
// deployment where a local MTA forwards mail.
const MailHost = "localhost:25"

// MailBody renders the plain-text report body for delivery.
func MailBody(rep Report) string {
	var b strings.Builder
	for _, line := range rep.Lines {
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	for _, line := range rep.Summary() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// MailSubject states the headline result, prefixed with the run annotation.
func MailSubject(annotation string, rep Report) string {
	if rep.Failed > 0 {
		return fmt.Sprintf("%s: %d failing tests!", annotation, rep.Failed)
	}
	return fmt.Sprintf("%s: all %d tests passed", annotation, rep.Passed)
}

// SendMail delivers the report through the local mail relay.
func SendMail(to, annotation string, rep Report) error {
	msg := strings.Join([]string{
		"From: xylositemonitor",
		"To: " + to,
		"Subject: " + MailSubject(annotation, rep),
		"",
		MailBody(rep),
	}, "\r\n")

	if err := smtp.SendMail(MailHost, nil, "xylositemonitor", []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("cannot send report mail: %w", err)
	}
	return nil
}
