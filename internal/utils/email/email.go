package email

import (
	"fmt"
	"net/smtp"
	"time"

	"bankledger/internal/config"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}

// SendMovementNotice sends a notification for a deposit or withdrawal
func (s *Sender) SendMovementNotice(to, username, accountNumber string, amount decimal.Decimal, movement string, balance decimal.Decimal) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("%s Notification", movement)

	body := fmt.Sprintf("Dear %s,\n\n", username)
	if movement == "Deposit" {
		body += fmt.Sprintf(
			"Your account %s has been credited with %s.\n"+
				"Transaction time: %s\n"+
				"Current balance: %s\n",
			accountNumber, amount, time.Now().Format("2006-01-02 15:04:05"), balance,
		)
	} else {
		body += fmt.Sprintf(
			"An amount of %s has been withdrawn from your account %s.\n"+
				"Transaction time: %s\n"+
				"Current balance: %s\n",
			amount, accountNumber, time.Now().Format("2006-01-02 15:04:05"), balance,
		)
	}
	body += "\nBest regards,\nBank Service"
	e.Text = []byte(body)

	return s.send(e)
}

// SendDepositUnlockedNotice tells the owner their deposit term has matured
func (s *Sender) SendDepositUnlockedNotice(to, username, accountNumber string, unlockDate time.Time) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Deposit Account Unlocked"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your deposit account %s matured on %s and is now unlocked.\n"+
			"Funds are available for withdrawal and transfer.\n"+
			"\nBest regards,\nBank Service",
		username, accountNumber, unlockDate.Format("2006-01-02"),
	)
	e.Text = []byte(body)

	return s.send(e)
}
