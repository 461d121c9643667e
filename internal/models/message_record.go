package models

// RawMessage is one fetched mail item before parsing: the full RFC822 text
// joined from the fetch stream plus the attributes the server reported
// alongside it.
type RawMessage struct {
	SeqNum     uint32
	UID        uint32
	Raw        []byte
	Attributes JSONMap
}

// MessageRecord is the normalized form handed to the forwarder. It lives
// for exactly one forward cycle and is never persisted.
type MessageRecord struct {
	SeqNum     uint32
	UID        uint32
	Headers    HeaderMap
	Body       string
	Attributes JSONMap
}

func (m *MessageRecord) Subject() *string {
	return m.Headers.First("subject")
}

func (m *MessageRecord) From() *string {
	return m.Headers.First("from")
}
