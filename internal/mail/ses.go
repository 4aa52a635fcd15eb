// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/samber/oops"
)

const charsetUTF8 = "UTF-8"

// Sender delivers a single message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// sesClient is the part of *sesv2.Client used by SESSender.
type sesClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESOptions configures NewSESSender. Static credentials are used only when
// both keys are set; otherwise the default AWS credential chain applies.
type SESOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the service endpoint, e.g. for a local SES emulator.
	Endpoint string
	From     string
}

// SESSender sends messages with the SES v2 SendEmail API.
type SESSender struct {
	client sesClient
	from   string
}

// loadAWSConfig is replaced in tests.
var loadAWSConfig = awsconfig.LoadDefaultConfig

// NewSESSender builds an SES client from opts.
func NewSESSender(ctx context.Context, opts SESOptions) (*SESSender, error) {
	if opts.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("from address is required")
	}
	if opts.Region == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("aws region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := loadAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("operation", "load aws config").Wrap(err)
	}

	client := sesv2.NewFromConfig(cfg, func(o *sesv2.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return newSESSender(client, opts.From), nil
}

func newSESSender(client sesClient, from string) *SESSender {
	return &SESSender{client: client, from: from}
}

// Send delivers msg. The from address doubles as the reply-to address.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		ReplyToAddresses: []string{s.from},
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Charset: aws.String(charsetUTF8), Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Charset: aws.String(charsetUTF8), Data: aws.String(msg.HTML)},
				},
			},
		},
	})
	if err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").
			With("message_id", msg.ID).
			With("kind", string(msg.Kind)).
			Wrap(err)
	}
	return nil
}
