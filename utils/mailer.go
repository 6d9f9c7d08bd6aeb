package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"groclist/config"
	"groclist/models"
)

type Mailer struct {
	Logger *logrus.Entry
}

func NewMailer(logger *logrus.Entry) *Mailer {
	return &Mailer{Logger: logger}
}

// Enabled reports whether SMTP is configured. When it is not, send calls
// log and return nil so invitation flows keep working in development.
func (m *Mailer) Enabled() bool {
	return config.AppConfig.SMTPHost != ""
}

// Embedded email templates
var emailTemplates = map[string]string{
	"invitation": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>You're invited to a shopping list</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>{{.InvitedByEmail}} invited you to join the list <strong>{{.ListName}}</strong>.</p>

        <p style="text-align: center; margin: 30px 0;">
            <a class="button" href="{{.Link}}">View invitation</a>
        </p>

        <p>Sign in with this email address to accept or decline.</p>
    </div>

    <div class="footer">
        <p>If you weren't expecting this invitation, you can safely ignore this email.</p>
        <p>&copy; {{.Year}} Groc List. All rights reserved.</p>
    </div>
</body>
</html>`,

	"reminder": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Reminder: pending list invitation</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>You still have a pending invitation from {{.InvitedByEmail}} to join <strong>{{.ListName}}</strong>.</p>

        <p style="text-align: center; margin: 30px 0;">
            <a class="button" href="{{.Link}}">Respond now</a>
        </p>
    </div>

    <div class="footer">
        <p>&copy; {{.Year}} Groc List. All rights reserved.</p>
    </div>
</body>
</html>`,
}

type invitationEmailData struct {
	Subject        string
	ListName       string
	InvitedByEmail string
	Link           string
	Year           int
}

// SendInvitation emails the invited address a link to respond
func (m *Mailer) SendInvitation(inv *models.ListInvitation) error {
	subject := fmt.Sprintf("%s invited you to %q", inv.InvitedByEmail, inv.ListName)
	return m.send(inv.InvitedEmail, subject, "invitation", invitationEmailData{
		Subject:        subject,
		ListName:       inv.ListName,
		InvitedByEmail: inv.InvitedByEmail,
		Link:           m.invitationLink(inv),
		Year:           time.Now().Year(),
	})
}

// SendInvitationReminder nudges the invitee about a still-pending invitation
func (m *Mailer) SendInvitationReminder(inv *models.ListInvitation) error {
	subject := fmt.Sprintf("Reminder: invitation to %q", inv.ListName)
	return m.send(inv.InvitedEmail, subject, "reminder", invitationEmailData{
		Subject:        subject,
		ListName:       inv.ListName,
		InvitedByEmail: inv.InvitedByEmail,
		Link:           m.invitationLink(inv),
		Year:           time.Now().Year(),
	})
}

func (m *Mailer) invitationLink(inv *models.ListInvitation) string {
	return fmt.Sprintf("%s/invitations?token=%s", config.AppConfig.AppBaseURL, inv.Token)
}

func (m *Mailer) send(to, subject, templateName string, data interface{}) error {
	if !m.Enabled() {
		m.Logger.WithFields(logrus.Fields{
			"to":       to,
			"template": templateName,
		}).Info("SMTP not configured, skipping email")
		return nil
	}

	tmplContent, ok := emailTemplates[templateName]
	if !ok {
		return fmt.Errorf("template %q not found", templateName)
	}

	tmpl, err := template.New("email").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("error parsing template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("error executing template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%s <%s>", config.AppConfig.FromName, config.AppConfig.FromEmail))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.Logger.WithFields(logrus.Fields{
		"to":       to,
		"template": templateName,
	}).Info("Email sent")
	return nil
}
