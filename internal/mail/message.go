// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Kind labels a message for logs and metrics.
type Kind string

// Message kinds.
const (
	KindResetCode Kind = "reset_code"
	KindTest      Kind = "test"
)

// Message is a rendered e-mail ready for delivery.
type Message struct {
	ID      string `json:"id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Kind    Kind   `json:"kind"`
}

// Subjects of the built-in messages.
const (
	ResetCodeSubject = "パスワードをリセットする"
	TestSubject      = "Password Reset Link"
)

var (
	resetCodeTmpl = template.Must(template.New("reset_code").Parse(`<html>
  <h1>パスワードをリセットします</h1>
  <p>こちらのコードを入力してください</p>
  <h2 style="color:red;">{{.Code}}</h2>
  <i>{{.Product}}</i>
</html>
`))

	testTmpl = template.Must(template.New("test").Parse(`<html>
  <h1>Reset password link</h1>
  <p>Please use the following link to reset your password</p>
</html>
`))
)

// ResetCodeMessage renders the reset-code e-mail for to. product is shown in
// the footer.
func ResetCodeMessage(to, code, product string) (Message, error) {
	html, err := render(resetCodeTmpl, struct{ Code, Product string }{code, product})
	if err != nil {
		return Message{}, err
	}
	return newMessage(KindResetCode, to, ResetCodeSubject, html)
}

// TestMessage renders the fixed test e-mail.
func TestMessage(to string) (Message, error) {
	html, err := render(testTmpl, nil)
	if err != nil {
		return Message{}, err
	}
	return newMessage(KindTest, to, TestSubject, html)
}

func newMessage(kind Kind, to, subject, html string) (Message, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return Message{}, oops.Code("MAIL_NO_RECIPIENT").With("kind", string(kind)).Errorf("recipient is required")
	}
	return Message{
		ID:      uuid.NewString(),
		To:      to,
		Subject: subject,
		HTML:    html,
		Kind:    kind,
	}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", oops.Code("MAIL_TEMPLATE_FAILED").With("template", t.Name()).Wrap(err)
	}
	return buf.String(), nil
}

// Validate reports whether m can be delivered.
func (m Message) Validate() error {
	switch {
	case m.ID == "":
		return oops.Code("MAIL_PAYLOAD_INVALID").Errorf("message id is required")
	case m.To == "":
		return oops.Code("MAIL_PAYLOAD_INVALID").With("id", m.ID).Errorf("recipient is required")
	case m.Subject == "" || m.HTML == "":
		return oops.Code("MAIL_PAYLOAD_INVALID").With("id", m.ID).Errorf("subject and body are required")
	}
	return nil
}
