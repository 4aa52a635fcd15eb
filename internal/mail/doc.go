// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mail renders account e-mails and delivers them through Amazon SES.
//
// Delivery is split in two halves. A Dispatcher accepts a Message; the Queue
// implementation stores it as an asynq task and the worker side hands it to a
// Sender (normally SESSender) with retries. Notifier adapts a Dispatcher to
// the auth.Notifier interface.
package mail
