package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/stablehq/paddock/internal/config"
	notificationdomain "github.com/stablehq/paddock/internal/notification/domain"
	"go.uber.org/zap"
)

// SMTPDispatcher delivers intents as plain-text email.
type SMTPDispatcher struct {
	cfg config.SMTPConfig
	log *zap.Logger
}

func NewSMTPDispatcher(cfg config.Config, log *zap.Logger) notificationdomain.Dispatcher {
	return &SMTPDispatcher{cfg: cfg.SMTP, log: log.Named("notification.smtp")}
}

func (d *SMTPDispatcher) Send(ctx context.Context, intent notificationdomain.Intent) error {
	if d.cfg.Host == "" {
		// No transport configured: log-only delivery keeps development
		// environments working without a mail server.
		d.log.Info("smtp not configured, dropping delivery",
			zap.String("recipient", intent.Recipient),
			zap.String("template", intent.Template),
		)
		return nil
	}

	subject, body := renderIntent(intent)
	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", d.cfg.FromName, d.cfg.From),
		"To: " + intent.Recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}
	return smtp.SendMail(addr, auth, d.cfg.From, []string{intent.Recipient}, []byte(msg))
}

func renderIntent(intent notificationdomain.Intent) (subject, body string) {
	title, _ := intent.Params["title"].(string)
	message, _ := intent.Params["message"].(string)

	switch intent.Template {
	case notificationdomain.TemplatePaymentRequest:
		if title == "" {
			title = "Payment request"
		}
	case notificationdomain.TemplateCareReminder:
		if title == "" {
			title = "Horse care reminder"
		}
	default:
		if title == "" {
			title = "Notification"
		}
	}
	if message == "" {
		message = title
	}
	return title, message
}
