package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	er "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

// FetchMessages streams the full raw text plus server attributes for the
// given UIDs and returns them in the same order as requested. The fetch is
// issued in batches; each message is complete once its body literal was
// read to the end and the batch once the fetch command confirmed.
func (s *mailSession) FetchMessages(ctx context.Context, uids []uint32) ([]*models.RawMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailSession.FetchMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, s.mailbox)
	span.LogFields(tracingLog.Int("uids.count", len(uids)))

	if len(uids) == 0 {
		return nil, nil
	}

	byUID := make(map[uint32]*models.RawMessage, len(uids))

	for start := 0; start < len(uids); start += int(s.fetchBatchSize) {
		end := start + int(s.fetchBatchSize)
		if end > len(uids) {
			end = len(uids)
		}

		if err := s.fetchBatch(ctx, uids[start:end], byUID); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	// Hand messages back in searcher order
	ordered := make([]*models.RawMessage, 0, len(uids))
	for _, uid := range uids {
		raw, ok := byUID[uid]
		if !ok {
			s.log.Warnf("uid %d was searched but not returned by fetch", uid)
			continue
		}
		ordered = append(ordered, raw)
	}

	span.LogFields(tracingLog.Int("messages.count", len(ordered)))
	return ordered, nil
}

func (s *mailSession) fetchBatch(ctx context.Context, uids []uint32, byUID map[uint32]*models.RawMessage) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchRFC822Size,
		"BODY.PEEK[]",
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	// Set client timeout for fetch
	s.client.Timeout = 60 * time.Second

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	for msg := range messages {
		raw := &models.RawMessage{
			SeqNum:     msg.SeqNum,
			UID:        msg.Uid,
			Raw:        extractFullMessage(msg),
			Attributes: serverAttributes(msg),
		}
		byUID[msg.Uid] = raw
	}

	err := <-done
	s.client.Timeout = 0

	if err != nil {
		return er.NewConnectionError(fmt.Errorf("uid fetch failed: %w", err))
	}
	return nil
}

// extractFullMessage concatenates the entire-message literal from the fetch
// response.
func extractFullMessage(msg *imap.Message) []byte {
	var fullMessageBuffer bytes.Buffer

	for section, literal := range msg.Body {
		if section.Peek {
			continue // Skip PEEK sections to avoid duplicates
		}

		// Check if this is the full message section
		if len(section.Path) == 0 && section.Specifier == imap.EntireSpecifier {
			data, err := io.ReadAll(literal)
			if err == nil {
				fullMessageBuffer.Write(data)
				break
			}
		}
	}

	return fullMessageBuffer.Bytes()
}

// serverAttributes keeps the metadata reported next to the body as an
// opaque map; the UID is the part the acknowledger depends on.
func serverAttributes(msg *imap.Message) models.JSONMap {
	attributes := models.JSONMap{
		"uid":     msg.Uid,
		"seq_num": msg.SeqNum,
		"flags":   msg.Flags,
		"size":    msg.Size,
	}
	if !msg.InternalDate.IsZero() {
		attributes["internal_date"] = msg.InternalDate
	}
	return attributes
}
