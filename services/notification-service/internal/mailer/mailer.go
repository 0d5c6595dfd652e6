package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"credential-storefront/shared/pkg/config"
	"credential-storefront/shared/pkg/models"
)

var ErrNoRecipient = errors.New("mailer: message has no recipient")

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Compose renders the delivery mail for a fulfilled order.
func Compose(orderID string, p models.OrderFulfilledPayload) Message {
	name, _, _ := strings.Cut(p.BuyerEmail, "@")
	var b strings.Builder
	fmt.Fprintf(&b, "Olá %s,\n\n", name)
	fmt.Fprintf(&b, "Seu pedido %s foi aprovado.\n\n", orderID)
	fmt.Fprintf(&b, "Produtos: %s\n", p.ProductSummary)
	fmt.Fprintf(&b, "Valor: %s\n\n", p.TotalFormatted)
	b.WriteString("Seus acessos:\n\n")
	b.WriteString(p.CredentialsText)
	fmt.Fprintf(&b, "\n\nVocê também encontra seus acessos em %s\n", p.DashboardLink)
	return Message{
		To:      p.BuyerEmail,
		Subject: "Seu pedido " + orderID + " - Assis Ads",
		Body:    b.String(),
	}
}

// SMTP sends plain-text mail with PLAIN auth.
type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func NewSMTP(c config.SMTPConfig) *SMTP {
	from := c.From
	if from == "" {
		from = c.User
	}
	return &SMTP{Host: c.Host, Port: c.Port, User: c.User, Pass: c.Pass, From: from}
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	if m.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := s.Host + ":" + s.Port
	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)
	if err := smtp.SendMail(addr, auth, s.From, []string{m.To}, raw(s.From, m)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func raw(from string, m Message) []byte {
	return []byte(
		"From: " + from + "\r\n" +
			"To: " + m.To + "\r\n" +
			"Subject: " + m.Subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			m.Body,
	)
}

// Log is the sender used when SMTP is not configured: the delivery is
// logged and counted as sent.
type Log struct{ Log zerolog.Logger }

func (l Log) Send(_ context.Context, m Message) error {
	if m.To == "" {
		return ErrNoRecipient
	}
	l.Log.Warn().Str("email", m.To).Str("subject", m.Subject).Msg("smtp not configured, skipping mail")
	return nil
}
