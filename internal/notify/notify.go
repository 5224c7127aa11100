package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

var (
	ErrNoRecipient = errors.New("no recipient for owner")
	ErrDisabled    = errors.New("sender disabled")
)

// Sender delivers body to one recipient (phone number, address, channel...).
type Sender interface {
	Send(ctx context.Context, recipient, body string) error
}

type SenderFunc func(ctx context.Context, recipient, body string) error

func (f SenderFunc) Send(ctx context.Context, recipient, body string) error {
	return f(ctx, recipient, body)
}

// Multi fans out to every sender. All senders are tried; errors are combined.
type Multi []Sender

func (m Multi) Send(ctx context.Context, recipient, body string) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Send(ctx, recipient, body))
	}
	return err
}

// Message is the alert text for a check that just changed state.
func Message(c domain.Check) string {
	return fmt.Sprintf("Alert: Your check for %s %s is currently %s",
		strings.ToUpper(string(c.Method)), c.Target(), c.State)
}

// Alerter resolves the owner of a check and sends them the alert message.
type Alerter struct {
	Logger     *zap.Logger
	Sender     Sender
	Recipients Resolver
}

func NewAlerter(logger *zap.Logger, sender Sender, recipients Resolver) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{Logger: logger, Sender: sender, Recipients: recipients}
}

func (a *Alerter) Alert(ctx context.Context, c domain.Check) error {
	to, err := a.Recipients.Resolve(c.OwnerID)
	if err != nil {
		return fmt.Errorf("notify.Alerter.Alert %s: %w", c.ID, err)
	}
	msg := Message(c)
	if err := a.Sender.Send(ctx, to, msg); err != nil {
		return fmt.Errorf("notify.Alerter.Alert %s: %w", c.ID, err)
	}
	a.Logger.Info("alert_sent",
		zap.String("check_id", string(c.ID)),
		zap.Stringer("state", c.State),
	)
	return nil
}

// Log writes alerts to the service log instead of delivering them.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(ctx context.Context, recipient, body string) error {
	l.Logger.Info("alert_log_only", zap.String("recipient", recipient), zap.String("body", body))
	return nil
}
