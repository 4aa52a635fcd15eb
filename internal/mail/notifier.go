// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"

	"github.com/samber/oops"

	"github.com/holomush/webauth/internal/auth"
)

// NotifierOptions configures a Notifier.
type NotifierOptions struct {
	// Product is shown in the footer of reset e-mails.
	Product string
	// TestRecipient receives the test e-mail.
	TestRecipient string
}

// Notifier renders account e-mails and hands them to a Dispatcher.
type Notifier struct {
	dispatcher Dispatcher
	opts       NotifierOptions
}

// NewNotifier creates a Notifier.
func NewNotifier(d Dispatcher, opts NotifierOptions) (*Notifier, error) {
	if d == nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("dispatcher is required")
	}
	return &Notifier{dispatcher: d, opts: opts}, nil
}

// SendResetCode dispatches the reset-code e-mail to to.
func (n *Notifier) SendResetCode(ctx context.Context, to, code string) error {
	msg, err := ResetCodeMessage(to, code, n.opts.Product)
	if err != nil {
		return err
	}
	return n.dispatcher.Dispatch(ctx, msg)
}

// SendTestEmail dispatches the test e-mail to the configured recipient.
func (n *Notifier) SendTestEmail(ctx context.Context) error {
	msg, err := TestMessage(n.opts.TestRecipient)
	if err != nil {
		return err
	}
	return n.dispatcher.Dispatch(ctx, msg)
}

var _ auth.Notifier = (*Notifier)(nil)
