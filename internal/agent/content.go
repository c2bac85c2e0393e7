package agent

// Message content is a sum: a plain text body, a list of typed parts, tool
// calls, or a tool result. CompletionMessage expresses the sum structurally
// (Content, Parts, ToolCalls, ToolResults); ContentKind reports which
// variant a given message carries. Parts take precedence over Content when
// both are set.

// MessageContentKind identifies the active variant of a message's content.
type MessageContentKind string

const (
	MessageContentText       MessageContentKind = "text"
	MessageContentParts      MessageContentKind = "parts"
	MessageContentToolCalls  MessageContentKind = "tool_calls"
	MessageContentToolResult MessageContentKind = "tool_result"
)

// ContentKind reports which variant of the content sum this message
// carries. Tool results win over tool calls, which win over parts, which
// win over plain text, matching how providers render the message.
func (m CompletionMessage) ContentKind() MessageContentKind {
	switch {
	case len(m.ToolResults) > 0:
		return MessageContentToolResult
	case len(m.ToolCalls) > 0:
		return MessageContentToolCalls
	case len(m.Parts) > 0:
		return MessageContentParts
	default:
		return MessageContentText
	}
}

// ContentPartType enumerates the closed set of content part variants.
type ContentPartType string

const (
	ContentPartText        ContentPartType = "text"
	ContentPartImageURL    ContentPartType = "image_url"
	ContentPartImageBase64 ContentPartType = "image_base64"
	ContentPartDocument    ContentPartType = "document"
)

// CacheControl marks a text part as provider-cacheable. Type is always
// "ephemeral"; TTL optionally bounds the cache entry lifetime (e.g. "5m",
// "1h") where the provider supports it.
type CacheControl struct {
	Type string `json:"type"`
	TTL  string `json:"ttl,omitempty"`
}

// EphemeralCacheControl returns the ephemeral cache marker, optionally
// with a TTL.
func EphemeralCacheControl(ttl string) *CacheControl {
	return &CacheControl{Type: "ephemeral", TTL: ttl}
}

// ContentPart is one element of a multi-part message body. The variant set
// is closed, so this is a tagged struct rather than an interface: Type
// selects which field group is meaningful.
type ContentPart struct {
	Type ContentPartType `json:"type"`

	// Text payload (ContentPartText), optionally cache-marked.
	Text         string        `json:"text,omitempty"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`

	// Image by URL (ContentPartImageURL), with optional detail hint
	// ("low", "high", "auto").
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`

	// Inline bytes for ContentPartImageBase64 and ContentPartDocument:
	// base64 data plus its media type.
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`

	// Title names a document part.
	Title string `json:"title,omitempty"`
}

// TextPart builds a plain text part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartText, Text: text}
}

// CachedTextPart builds a text part carrying the ephemeral cache marker.
func CachedTextPart(text, ttl string) ContentPart {
	return ContentPart{
		Type:         ContentPartText,
		Text:         text,
		CacheControl: EphemeralCacheControl(ttl),
	}
}

// ImageURLPart builds an image-by-URL part.
func ImageURLPart(url, detail string) ContentPart {
	return ContentPart{Type: ContentPartImageURL, ImageURL: url, Detail: detail}
}

// ImageBase64Part builds an inline image part.
func ImageBase64Part(mimeType, data string) ContentPart {
	return ContentPart{Type: ContentPartImageBase64, MimeType: mimeType, Data: data}
}

// DocumentPart builds an inline document part.
func DocumentPart(title, mimeType, data string) ContentPart {
	return ContentPart{Type: ContentPartDocument, Title: title, MimeType: mimeType, Data: data}
}
