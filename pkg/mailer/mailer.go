// Package mailer 负责发送系统邮件。
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"neomate-go/internal/config"
)

// Mailer 通过 SMTP 发送邮件。
type Mailer struct {
	cfg config.MailConfig
}

// New 创建一个新的 Mailer 实例。
func New(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendConfirmation 发送注册确认邮件。收件人点击链接完成邮箱确认后才能登录。
func (m *Mailer) SendConfirmation(to, confirmToken string) error {
	link := fmt.Sprintf("%s?token=%s", m.cfg.ConfirmBaseURL, confirmToken)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Confirm your Neomate account")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Welcome to Neomate.\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nIf you did not create this account, you can ignore this message.\n", link))

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	return dialer.DialAndSend(msg)
}
