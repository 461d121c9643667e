package errors

import (
	"errors"
	"fmt"
)

// Cycle-aborting errors: connection, mailbox and search failures end the
// current forward cycle and trigger the retry back-off. Parse, delivery and
// flag errors stay scoped to a single message.

type ConnectionError struct {
	Err error
}

func NewConnectionError(err error) *ConnectionError {
	return &ConnectionError{Err: err}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

type MailboxError struct {
	Mailbox string
	Err     error
}

func NewMailboxError(mailbox string, err error) *MailboxError {
	return &MailboxError{Mailbox: mailbox, Err: err}
}

func (e *MailboxError) Error() string {
	return fmt.Sprintf("mailbox %s not available: %v", e.Mailbox, e.Err)
}

func (e *MailboxError) Unwrap() error { return e.Err }

type SearchError struct {
	Err error
}

func NewSearchError(err error) *SearchError {
	return &SearchError{Err: err}
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("unseen search failed: %v", e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

type ParseError struct {
	UID uint32
	Err error
}

func NewParseError(uid uint32, err error) *ParseError {
	return &ParseError{UID: uid, Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("message uid %d not parseable: %v", e.UID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type DeliveryError struct {
	UID        uint32
	StatusCode int
	Err        error
}

func NewDeliveryError(uid uint32, statusCode int, err error) *DeliveryError {
	return &DeliveryError{UID: uid, StatusCode: statusCode, Err: err}
}

func (e *DeliveryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("delivery of message uid %d failed with status %d: %v", e.UID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("delivery of message uid %d failed: %v", e.UID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

type FlagError struct {
	UID uint32
	Err error
}

func NewFlagError(uid uint32, err error) *FlagError {
	return &FlagError{UID: uid, Err: err}
}

func (e *FlagError) Error() string {
	return fmt.Sprintf("seen flag for message uid %d not stored: %v", e.UID, e.Err)
}

func (e *FlagError) Unwrap() error { return e.Err }

func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

func IsMailboxError(err error) bool {
	var target *MailboxError
	return errors.As(err, &target)
}

func IsSearchError(err error) bool {
	var target *SearchError
	return errors.As(err, &target)
}

func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

func IsDeliveryError(err error) bool {
	var target *DeliveryError
	return errors.As(err, &target)
}

func IsFlagError(err error) bool {
	var target *FlagError
	return errors.As(err, &target)
}

// IsCycleAborting reports whether err must abort the whole cycle instead of
// skipping a single message.
func IsCycleAborting(err error) bool {
	return IsConnectionError(err) || IsMailboxError(err) || IsSearchError(err)
}
