// Package json is the JSON wire format for queries, answers and saved
// conversations.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/edabot"
)

// transcriptVersion is the version written by SaveConversation.
const transcriptVersion = 1

// Query is the body of a question: the conversation so far, newest turn
// last.
type Query struct {
	Conversation []turnDTO `json:"conversation"`
}

type turnDTO struct {
	Role        string          `json:"role"`
	Content     string          `json:"content"`
	Attachments []attachmentDTO `json:"attachments,omitempty"`
}

type attachmentDTO struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type envelopeDTO struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
	Outcome  string `json:"outcome"`
}

// transcript is the on-disk format of a saved conversation.
type transcript struct {
	Version      int       `json:"version"`
	Conversation []turnDTO `json:"conversation"`
}

// UnmarshalQuery decodes a query body into a conversation. Unknown roles, an
// empty conversation and attachments without a URL are rejected with an error
// wrapping edabot.ErrValidation.
func UnmarshalQuery(data []byte) (edabot.Conversation, error) {
	var q Query
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("json: %w: %w", edabot.ErrValidation, err)
	}
	if len(q.Conversation) == 0 {
		return nil, fmt.Errorf("json: %w: conversation is empty", edabot.ErrValidation)
	}
	return toConversation(q.Conversation)
}

// MarshalQuery encodes a conversation as a query body.
func MarshalQuery(conv edabot.Conversation) ([]byte, error) {
	return json.Marshal(Query{Conversation: fromConversation(conv)})
}

// MarshalEnvelope encodes an answer.
func MarshalEnvelope(env edabot.Envelope) ([]byte, error) {
	return json.Marshal(envelopeDTO{
		Text:     env.Text,
		ImageURL: env.ImageURL,
		Outcome:  string(env.Outcome),
	})
}

// UnmarshalEnvelope decodes an answer.
func UnmarshalEnvelope(data []byte) (edabot.Envelope, error) {
	var dto envelopeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return edabot.Envelope{}, fmt.Errorf("json: %w", err)
	}
	return edabot.Envelope{
		Text:     dto.Text,
		ImageURL: dto.ImageURL,
		Outcome:  edabot.Outcome(dto.Outcome),
	}, nil
}

// SaveConversation writes conv to path atomically, creating parent
// directories as needed.
func SaveConversation(path string, conv edabot.Conversation) error {
	data, err := json.MarshalIndent(transcript{
		Version:      transcriptVersion,
		Conversation: fromConversation(conv),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("json: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("json: create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("json: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("json: rename temp file: %w", err)
	}
	return nil
}

// LoadConversation reads a conversation saved by SaveConversation.
func LoadConversation(path string) (edabot.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	var tr transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("json: %s: %w", path, err)
	}
	if tr.Version != transcriptVersion {
		return nil, fmt.Errorf("json: %s: unsupported transcript version %d", path, tr.Version)
	}
	return toConversation(tr.Conversation)
}

func toConversation(turns []turnDTO) (edabot.Conversation, error) {
	conv := make(edabot.Conversation, len(turns))
	for i, dto := range turns {
		role := edabot.Role(dto.Role)
		switch role {
		case edabot.RoleSystem, edabot.RoleUser, edabot.RoleAssistant:
		default:
			return nil, fmt.Errorf("json: turn %d: %w: unknown role %q", i, edabot.ErrValidation, dto.Role)
		}
		turn := edabot.Turn{Role: role, Content: dto.Content}
		for j, a := range dto.Attachments {
			if a.URL == "" {
				return nil, fmt.Errorf("json: turn %d: attachment %d: %w: url is required", i, j, edabot.ErrValidation)
			}
			turn.Attachments = append(turn.Attachments, edabot.Attachment{
				URL:         a.URL,
				Name:        a.Name,
				ContentType: a.ContentType,
			})
		}
		conv[i] = turn
	}
	return conv, nil
}

func fromConversation(conv edabot.Conversation) []turnDTO {
	turns := make([]turnDTO, len(conv))
	for i, t := range conv {
		dto := turnDTO{Role: string(t.Role), Content: t.Content}
		for _, a := range t.Attachments {
			dto.Attachments = append(dto.Attachments, attachmentDTO{
				URL:         a.URL,
				Name:        a.Name,
				ContentType: a.ContentType,
			})
		}
		turns[i] = dto
	}
	return turns
}
