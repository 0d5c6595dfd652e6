package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"credential-storefront/shared/pkg/config"
	"credential-storefront/shared/pkg/models"
)

func TestCompose(t *testing.T) {
	m := Compose("PED-1", models.OrderFulfilledPayload{
		BuyerEmail:      "maria@x.com",
		ProductSummary:  "1x Perfil Facebook Aquecido",
		TotalFormatted:  "R$ 70.00",
		CredentialsText: "login|pass|2fa",
		DashboardLink:   "https://shop.test/dashboard",
	})
	assert.Equal(t, "maria@x.com", m.To)
	assert.Equal(t, "Seu pedido PED-1 - Assis Ads", m.Subject)
	assert.Contains(t, m.Body, "Olá maria,")
	assert.Contains(t, m.Body, "Valor: R$ 70.00")
	assert.Contains(t, m.Body, "login|pass|2fa")
	assert.Contains(t, m.Body, "https://shop.test/dashboard")
}

func TestNewSMTPDefaultsFrom(t *testing.T) {
	s := NewSMTP(config.SMTPConfig{Host: "smtp.test", Port: "587", User: "shop@test"})
	assert.Equal(t, "shop@test", s.From)
	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipient)
}

func TestRawHeaders(t *testing.T) {
	b := raw("shop@test", Message{To: "a@x.com", Subject: "Oi", Body: "corpo"})
	assert.Equal(t, "From: shop@test\r\nTo: a@x.com\r\nSubject: Oi\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\ncorpo", string(b))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	l := Log{Log: zerolog.New(&buf)}
	assert.NoError(t, l.Send(context.Background(), Message{To: "a@x.com", Subject: "s", Body: "secret-credential"}))
	assert.NotContains(t, buf.String(), "secret-credential")
	assert.ErrorIs(t, l.Send(context.Background(), Message{}), ErrNoRecipient)
}
