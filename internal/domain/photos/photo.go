package photos

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Photo is the uniform in-memory photo record. Data is a self-contained
// base64 data URI, so a Photo travels inline with its visit and needs no
// separate storage lifecycle. Immutable once created.
type Photo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// EncodeDataURI encodes raw image bytes as a data URI for the given MIME type.
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI splits a data URI into its MIME type and decoded bytes.
func ParseDataURI(uri string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, fmt.Errorf("not a data URI")
	}
	rest := strings.TrimPrefix(uri, "data:")

	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, fmt.Errorf("malformed data URI: missing payload")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("unsupported data URI encoding: %q", meta)
	}
	mimeType = strings.TrimSuffix(meta, ";base64")

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI payload: %w", err)
	}
	return mimeType, data, nil
}

// Validate checks that a photo record is well-formed: non-empty name and a
// parseable data URI payload.
func (p Photo) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("photo name is required")
	}
	if _, _, err := ParseDataURI(p.Data); err != nil {
		return fmt.Errorf("photo %q: %w", p.Name, err)
	}
	return nil
}
