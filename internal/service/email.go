// Package service holds collaborators the authority notifies but never
// depends on for correctness.
package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"easymed-admin-backend/internal/domain"
	"easymed-admin-backend/internal/logger"
)

// EmailNotifier sends roster-change emails through SendGrid. It implements
// authority.Notifier; delivery failures are logged and never surfaced, so a
// broken email path cannot fail a team operation.
type EmailNotifier struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewEmailNotifier(apiKey, fromEmail, fromName string) *EmailNotifier {
	return &EmailNotifier{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (n *EmailNotifier) MemberAdded(ctx context.Context, member domain.AdminUser) {
	if member.Email == "" {
		return
	}
	subject := "Welcome to the EasyMed admin team"
	plainText := fmt.Sprintf(
		"Hello %s,\n\nYou have been added to the EasyMed admin team as %s (%s).\nYou can sign in with your phone number or email address.\n\nBest regards,\nThe EasyMed Team",
		member.Name, member.Designation, member.Role,
	)
	htmlContent := fmt.Sprintf(`
		<html>
			<body>
				<h2>Welcome to the EasyMed admin team</h2>
				<p>Hello <strong>%s</strong>,</p>
				<p>You have been added as <strong>%s</strong> (%s). You can sign in with your phone number or email address.</p>
			</body>
		</html>
	`, member.Name, member.Designation, member.Role)

	n.send(member.Email, member.Name, subject, plainText, htmlContent)
}

func (n *EmailNotifier) MemberRemoved(ctx context.Context, member domain.AdminUser) {
	if member.Email == "" {
		return
	}
	subject := "EasyMed admin access removed"
	plainText := fmt.Sprintf(
		"Hello %s,\n\nYour access to the EasyMed admin team has been removed.\n\nBest regards,\nThe EasyMed Team",
		member.Name,
	)
	n.send(member.Email, member.Name, subject, plainText, "")
}

func (n *EmailNotifier) send(to, toName, subject, plainText, htmlContent string) {
	logger.ExternalServiceCall("sendgrid", "send", "to", to, "subject", subject)

	from := mail.NewEmail(n.fromName, n.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	client := sendgrid.NewSendClient(n.apiKey)
	response, err := client.Send(message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", to)
}
