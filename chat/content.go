package chat

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ContentKind discriminates the Content union.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
	ContentEmpty ContentKind = "empty"
)

// Content is the renderable payload of a record. Exactly one variant is set.
type Content struct {
	kind  ContentKind
	text  string
	image string
}

// TextContent returns the Text variant.
func TextContent(s string) Content { return Content{kind: ContentText, text: s} }

// ImageContent returns the Image variant carrying the base64 payload as received.
func ImageContent(payload string) Content { return Content{kind: ContentImage, image: payload} }

// EmptyContent returns the empty-placeholder variant.
func EmptyContent() Content { return Content{kind: ContentEmpty} }

// Kind returns the variant tag. The zero Content is Empty.
func (c Content) Kind() ContentKind {
	if c.kind == "" {
		return ContentEmpty
	}
	return c.kind
}

// Text returns the text payload and whether c is the Text variant.
func (c Content) Text() (string, bool) {
	return c.text, c.Kind() == ContentText
}

// Image returns the base64 image payload and whether c is the Image variant.
func (c Content) Image() (string, bool) {
	return c.image, c.Kind() == ContentImage
}

// IsEmpty reports whether c is the Empty variant.
func (c Content) IsEmpty() bool { return c.Kind() == ContentEmpty }

// Bytes decodes the image payload. A data: URL prefix is tolerated and both
// padded and unpadded standard alphabets are accepted.
func (c Content) Bytes() ([]byte, error) {
	payload, ok := c.Image()
	if !ok {
		return nil, fmt.Errorf("content is %s, not image", c.Kind())
	}
	if i := strings.Index(payload, ","); strings.HasPrefix(payload, "data:") && i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	data, rawErr := base64.RawStdEncoding.DecodeString(payload)
	if rawErr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("failed to decode image payload: %w", err)
}

// String renders a short plain-text form, used for clipboard and CLI output.
func (c Content) String() string {
	switch c.Kind() {
	case ContentText:
		return c.text
	case ContentImage:
		return fmt.Sprintf("[image: %d base64 chars]", len(c.image))
	default:
		return "(empty message)"
	}
}

type contentJSON struct {
	Kind  ContentKind `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Image string      `json:"image,omitempty"`
}

// MarshalJSON encodes the union with an explicit kind tag.
func (c Content) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentJSON{Kind: c.Kind(), Text: c.text, Image: c.image})
}

// UnmarshalJSON decodes the tagged form written by MarshalJSON.
func (c *Content) UnmarshalJSON(data []byte) error {
	var v contentJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Kind {
	case ContentText:
		*c = TextContent(v.Text)
	case ContentImage:
		*c = ImageContent(v.Image)
	case ContentEmpty, "":
		*c = EmptyContent()
	default:
		return fmt.Errorf("unknown content kind %q", v.Kind)
	}
	return nil
}

// ResolveContent picks the renderable payload of raw. The first non-empty
// candidate wins:
//
//	message_text, text, image (when typed IMAGE), ai_response, any image, Empty
//
// The trailing image fallback keeps untyped image records from rendering as
// Empty.
func ResolveContent(raw RawMessage) Content {
	if raw.MessageText != "" {
		return TextContent(raw.MessageText)
	}
	if raw.Text != "" {
		return TextContent(raw.Text)
	}
	image := raw.ImagePayload()
	if image != "" && raw.IsType(MessageTypeImage) {
		return ImageContent(image)
	}
	if raw.AIResponse != "" {
		return TextContent(raw.AIResponse)
	}
	if image != "" {
		return ImageContent(image)
	}
	return EmptyContent()
}
