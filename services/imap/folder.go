package imap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	er "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/tracing"
)

// OpenMailbox selects the named folder read/write; later steps mutate
// message flags.
func (s *mailSession) OpenMailbox(ctx context.Context, name string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailSession.OpenMailbox")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, name)

	// Set client timeout temporarily
	s.client.Timeout = 30 * time.Second
	mbox, err := s.client.Select(name, false)
	s.client.Timeout = 0

	if err != nil {
		mailboxErr := er.NewMailboxError(name, err)
		tracing.TraceErr(span, mailboxErr)
		return mailboxErr
	}

	s.mailbox = name
	s.log.Debugf("[%s] selected - messages: %d, recent: %d, unseen: %d",
		name, mbox.Messages, mbox.Recent, mbox.Unseen)

	span.SetTag("messages.total", mbox.Messages)
	span.SetTag("messages.recent", mbox.Recent)
	span.SetTag("messages.unseen", mbox.Unseen)

	return nil
}

// SearchUnseen returns the UIDs of messages without the \Seen flag, in
// ascending server order. An empty result is a normal outcome.
func (s *mailSession) SearchUnseen(ctx context.Context) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailSession.SearchUnseen")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, s.mailbox)

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	s.client.Timeout = 30 * time.Second
	uids, err := s.client.UidSearch(criteria)
	s.client.Timeout = 0

	if err != nil {
		searchErr := er.NewSearchError(err)
		tracing.TraceErr(span, searchErr)
		return nil, searchErr
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	span.LogFields(tracingLog.Int("unseen.count", len(uids)))
	return uids, nil
}

// AddSeenFlag marks one message seen by UID. Called only after the message
// was delivered downstream.
func (s *mailSession) AddSeenFlag(ctx context.Context, uid uint32) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailSession.AddSeenFlag")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, s.mailbox)
	tracing.TagMessageUid(span, uid)

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	s.client.Timeout = 30 * time.Second
	err := s.client.UidStore(seqSet, item, flags, nil)
	s.client.Timeout = 0

	if err != nil {
		flagErr := er.NewFlagError(uid, fmt.Errorf("failed to store \\Seen: %w", err))
		tracing.TraceErr(span, flagErr)
		return flagErr
	}

	return nil
}
