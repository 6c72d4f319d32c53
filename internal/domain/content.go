package domain

import (
	"strings"
	"unicode"
)

// ContentKind discriminates the variants a message body can hold.
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindOrder ContentKind = "order"
)

// Wire prefixes of the stored message encoding.
const (
	imagePrefix = "image:"
	orderPrefix = "order:"
)

// Content is the decoded form of Message.Content. Exactly one group of
// fields is meaningful for a given Kind:
//   - KindText:  Text
//   - KindImage: ImageURL, Caption (optional)
//   - KindOrder: OrderID
type Content struct {
	Kind     ContentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	ImageURL string      `json:"image_url,omitempty"`
	Caption  string      `json:"caption,omitempty"`
	OrderID  string      `json:"order_id,omitempty"`
}

// TextContent builds a plain text body.
func TextContent(text string) Content { return Content{Kind: KindText, Text: text} }

// ImageContent builds an image body with an optional caption.
func ImageContent(url, caption string) Content {
	return Content{Kind: KindImage, ImageURL: url, Caption: strings.TrimSpace(caption)}
}

// OrderContent builds an order reference body.
func OrderContent(orderID string) Content { return Content{Kind: KindOrder, OrderID: orderID} }

// ParseContent decodes a stored message body. "order:<id>" becomes an order
// reference, "image:<url> [caption]" an image whose URL is the first
// whitespace-delimited token, anything else is text. Malformed tags (empty
// id or url) fall back to text so nothing is silently dropped.
func ParseContent(raw string) Content {
	switch {
	case strings.HasPrefix(raw, orderPrefix):
		id := strings.TrimSpace(strings.TrimPrefix(raw, orderPrefix))
		if id != "" {
			return OrderContent(id)
		}
	case strings.HasPrefix(raw, imagePrefix):
		rest := strings.TrimSpace(strings.TrimPrefix(raw, imagePrefix))
		if rest != "" {
			url, caption := rest, ""
			if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
				url, caption = rest[:i], rest[i:]
			}
			return ImageContent(url, caption)
		}
	}
	return TextContent(raw)
}

// Encode returns the stored string form of c.
func (c Content) Encode() string {
	switch c.Kind {
	case KindOrder:
		return orderPrefix + c.OrderID
	case KindImage:
		if c.Caption == "" {
			return imagePrefix + c.ImageURL
		}
		return imagePrefix + c.ImageURL + " " + c.Caption
	default:
		return c.Text
	}
}

// HasReservedPrefix reports whether free text would be mistaken for a
// tagged body when stored.
func HasReservedPrefix(text string) bool {
	return strings.HasPrefix(text, imagePrefix) || strings.HasPrefix(text, orderPrefix)
}
