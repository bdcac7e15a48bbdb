package llm

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/cloudwego/eino/schema"
)

var errBadDataURI = errors.New("malformed data URI")

// ImageDataURI normalizes a screenshot payload to a data URI. Payloads that
// already carry the data: prefix are returned unchanged.
func ImageDataURI(data, mimeType string) string {
	if strings.HasPrefix(data, "data:") {
		return data
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + data
}

// WithImage returns msg carrying an image part next to its text.
func WithImage(msg *schema.Message, dataURI string) *schema.Message {
	out := *msg
	out.MultiContent = []schema.ChatMessagePart{
		{Type: schema.ChatMessagePartTypeText, Text: msg.Content},
		{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: dataURI}},
	}
	return &out
}

func parseDataURI(uri string) (mimeType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errBadDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errBadDataURI
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errBadDataURI
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return mimeType, data, nil
}

// messageText is the text of msg, falling back to its text parts.
func messageText(msg *schema.Message) string {
	if msg.Content != "" || len(msg.MultiContent) == 0 {
		return msg.Content
	}
	var b strings.Builder
	for _, part := range msg.MultiContent {
		if part.Type == schema.ChatMessagePartTypeText {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func imageURLs(msg *schema.Message) []string {
	var urls []string
	for _, part := range msg.MultiContent {
		if part.Type == schema.ChatMessagePartTypeImageURL && part.ImageURL != nil && part.ImageURL.URL != "" {
			urls = append(urls, part.ImageURL.URL)
		}
	}
	return urls
}
