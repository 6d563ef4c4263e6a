package edabot

// Attachment is a file reference carried by a conversation turn.
type Attachment struct {
	URL         string
	Name        string
	ContentType string
}

// Turn is a single message of a conversation.
type Turn struct {
	Role        Role
	Content     string
	Attachments []Attachment
}

// Conversation is an ordered sequence of turns, oldest first.
type Conversation []Turn

// FindAttachment returns the first attachment of the most recent turn that
// carries one. Turns are scanned newest to oldest; the first match wins.
func FindAttachment(conv Conversation) (Attachment, bool) {
	for i := len(conv) - 1; i >= 0; i-- {
		if len(conv[i].Attachments) > 0 {
			return conv[i].Attachments[0], true
		}
	}
	return Attachment{}, false
}

// LatestUserTurn returns the index of the newest user turn, or -1.
func LatestUserTurn(conv Conversation) int {
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// Clone returns a copy of the conversation whose turns can be rewritten
// without affecting the caller's slice. Attachments are shared.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}
