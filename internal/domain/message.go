package domain

import (
	"fmt"
	"slices"
	"strings"
)

// MetadataClientNonce is the metadata key carrying the client-generated correlation nonce.
const MetadataClientNonce = "client_nonce"

// Message represents one entry of a thread.
type Message struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id,omitempty"`
	Role      Role           `json:"role"`
	Content   []ContentPart  `json:"content"`
	CreatedAt int64          `json:"created_at"` // Unix seconds
	RunID     string         `json:"run_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// Pending marks a local placeholder that the server has not confirmed yet.
	Pending bool `json:"pending,omitempty"`
}

// ContentPart is a tagged union keyed by Type. Exactly one payload field matches Type.
type ContentPart struct {
	Type      ContentType       `json:"type"`
	Text      *TextContent      `json:"text,omitempty"`
	ImageFile *ImageFileContent `json:"image_file,omitempty"`
	ImageURL  *ImageURLContent  `json:"image_url,omitempty"`
	Refusal   string            `json:"refusal,omitempty"`
}

// TextContent is the payload of a text part.
type TextContent struct {
	Value       string `json:"value"`
	Annotations []any  `json:"annotations,omitempty"`
}

// ImageFileContent references an uploaded image file.
type ImageFileContent struct {
	FileID string `json:"file_id"`
	Detail string `json:"detail,omitempty"`
}

// ImageURLContent references an image by URL.
type ImageURLContent struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// TextPart builds a text content part.
func TextPart(value string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: &TextContent{Value: value}}
}

// String renders the part as plain text.
func (p ContentPart) String() string {
	switch p.Type {
	case ContentTypeText:
		if p.Text != nil {
			return p.Text.Value
		}
	case ContentTypeImageFile:
		if p.ImageFile != nil {
			return fmt.Sprintf("[image file %s]", p.ImageFile.FileID)
		}
	case ContentTypeImageURL:
		if p.ImageURL != nil {
			return fmt.Sprintf("[image %s]", p.ImageURL.URL)
		}
	case ContentTypeRefusal:
		if p.Refusal == "" {
			return "[refused]"
		}
		return "[refused] " + p.Refusal
	}
	return ""
}

// Text concatenates the plain-text rendering of all content parts.
func (m Message) Text() string {
	parts := make([]string, 0, len(m.Content))
	for _, p := range m.Content {
		if s := p.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Nonce returns the client correlation nonce, if any.
func (m Message) Nonce() string {
	if m.Metadata == nil {
		return ""
	}
	nonce, _ := m.Metadata[MetadataClientNonce].(string)
	return nonce
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Content = slices.Clone(m.Content)
	for i, p := range out.Content {
		if p.Text != nil {
			t := *p.Text
			t.Annotations = slices.Clone(t.Annotations)
			out.Content[i].Text = &t
		}
		if p.ImageFile != nil {
			f := *p.ImageFile
			out.Content[i].ImageFile = &f
		}
		if p.ImageURL != nil {
			u := *p.ImageURL
			out.Content[i].ImageURL = &u
		}
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// SortMessages orders messages by creation time. Ties keep their input order.
func SortMessages(messages []Message) {
	slices.SortStableFunc(messages, func(a, b Message) int {
		switch {
		case a.CreatedAt < b.CreatedAt:
			return -1
		case a.CreatedAt > b.CreatedAt:
			return 1
		}
		return 0
	})
}

// MessageRequest is the input for adding a user message to a thread.
type MessageRequest struct {
	Content string `json:"content"`
	Nonce   string `json:"nonce,omitempty"`
}

// AddMessageResult is returned after a message is added and a run is started for it.
type AddMessageResult struct {
	RunID   string  `json:"run_id"`
	Message Message `json:"message"`
}
