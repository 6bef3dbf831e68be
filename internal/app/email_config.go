package app

import (
	"github.com/charlesng35/sosrelay/pkg/mail"
	"github.com/charlesng35/sosrelay/pkg/sms"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// ResendSettings converts EmailConfig to the Resend client settings.
func (c EmailConfig) ResendSettings() mail.ResendSettings {
	return mail.ResendSettings{
		APIKey:  c.Resend.APIKey,
		BaseURL: c.Resend.BaseURL,
		From:    c.Resend.From,
		Timeout: c.Resend.Timeout,
	}
}

// NewMailer builds the mailer for the configured provider.
func (c EmailConfig) NewMailer() (mail.Mailer, string, error) {
	if normalizeProvider(c.Provider) == EmailProviderSMTP {
		mailer, err := mail.NewSMTPMailer(c.SMTPSettings())
		return mailer, EmailProviderSMTP, err
	}
	mailer, err := mail.NewResendMailer(c.ResendSettings())
	return mailer, EmailProviderResend, err
}

// SemaphoreSettings converts SMSConfig to the Semaphore client settings.
func (c SMSConfig) SemaphoreSettings() sms.SemaphoreSettings {
	return sms.SemaphoreSettings{
		APIKey:     c.Semaphore.APIKey,
		BaseURL:    c.Semaphore.BaseURL,
		SenderName: c.Semaphore.SenderName,
		Timeout:    c.Semaphore.Timeout,
	}
}
