package mailer

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// EscalationAlert is what the front desk needs to pick up a new escalation.
type EscalationAlert struct {
	OrganizationName string
	ChatSessionId    string
	EscalationId     string
	Priority         string
	DashboardURL     string
}

type IEmailService interface {
	SendEscalationAlert(toEmail string, alert EscalationAlert) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderName string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
	}
}

func buildAlertMessage(from, fromName, toEmail string, alert EscalationAlert) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, fromName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[%s] New %s priority escalation", alert.OrganizationName, alert.Priority))

	link := ""
	if alert.DashboardURL != "" {
		link = fmt.Sprintf(`<p><a href="%s">Open the escalation queue</a></p>`, html.EscapeString(alert.DashboardURL))
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>A patient conversation needs a human</h2>
			<p>Priority: <strong>%s</strong></p>
			<p>Chat session: %s</p>
			<p>Escalation: %s</p>
			<p>The escalation is unassigned. The first staff member to claim it owns it.</p>
			%s
		</div>
	`, html.EscapeString(alert.Priority), alert.ChatSessionId, alert.EscalationId, link)

	m.SetBody("text/html", body)
	return m
}

func (s *emailService) SendEscalationAlert(toEmail string, alert EscalationAlert) error {
	m := buildAlertMessage(s.senderEmail, s.senderName, toEmail, alert)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send escalation alert to %s: %w", toEmail, err)
	}
	return nil
}
