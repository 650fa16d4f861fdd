package protocol

// Message is one decoded wire record.
type Message struct {
	ClientType ClientType  `json:"client_type"`
	Type       MessageType `json:"message"`
	ClientID   string      `json:"client_id"`
	Sequence   *int64      `json:"sequence_number,omitempty"`
	Action     string      `json:"action,omitempty"`
	Status     string      `json:"status,omitempty"`
	Timestamp  string      `json:"timestamp,omitempty"`

	// Raw holds the received bytes so a record can be forwarded verbatim.
	Raw []byte `json:"-"`
}

// SequenceNumber returns the sender's sequence number if one was present.
func (m Message) SequenceNumber() (int64, bool) {
	if m.Sequence == nil {
		return 0, false
	}
	return *m.Sequence, true
}

// Fields carries the optional parts of an outbound record.
type Fields struct {
	Sequence *int64
	Action   string
	Status   string
}

// Seq boxes a sequence number for Fields.
func Seq(n int64) *int64 {
	return &n
}
