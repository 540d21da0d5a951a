package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"

	"ticketing-backend/logger"
)

const sendTimeout = 10 * time.Second

// Mailer emails the buyer through MailerSend.
type Mailer struct {
	client    *mailersend.Mailersend
	fromEmail string
	fromName  string
}

func NewMailer(apiKey, fromEmail, fromName string) *Mailer {
	return &Mailer{
		client:    mailersend.NewMailersend(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *Mailer) message(conf Confirmation) *mailersend.Message {
	msg := m.client.Email.NewMessage()
	msg.SetFrom(mailersend.From{
		Name:  m.fromName,
		Email: m.fromEmail,
	})
	msg.SetRecipients([]mailersend.Recipient{
		{
			Name:  conf.Username,
			Email: conf.Email,
		},
	})
	msg.SetSubject(conf.subject())
	msg.SetHTML(conf.html())
	msg.SetText(conf.text())
	return msg
}

func (m *Mailer) PurchaseConfirmed(ctx context.Context, conf Confirmation) error {
	if conf.Email == "" {
		logger.Warnf(ctx, "purchaseConfirmed: user %d has no email, skipping purchase %d", conf.UserID, conf.PurchaseID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	res, err := m.client.Email.Send(ctx, m.message(conf))
	if err != nil {
		return fmt.Errorf("purchaseConfirmed: error sending email for purchase %d: %w", conf.PurchaseID, err)
	}

	logger.Infof(ctx, "purchaseConfirmed: email sent for purchase %d, message id %s", conf.PurchaseID, res.Header.Get("X-Message-Id"))
	return nil
}
