package interfaces

import (
	"context"

	"github.com/customeros/mailbridge/internal/models"
)

// MailSession is one authenticated connection to the mail server, owned by
// exactly one forward cycle and released when the cycle ends. Close must be
// safe to call after any failure.
type MailSession interface {
	OpenMailbox(ctx context.Context, name string) error
	SearchUnseen(ctx context.Context) ([]uint32, error)
	FetchMessages(ctx context.Context, uids []uint32) ([]*models.RawMessage, error)
	AddSeenFlag(ctx context.Context, uid uint32) error
	Close(ctx context.Context)
}

// SessionFactory dials and authenticates a new mail session.
type SessionFactory interface {
	NewSession(ctx context.Context) (MailSession, error)
}
