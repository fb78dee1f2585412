package model

import "bytes"

const defaultContentType = "application/octet-stream"

// Payload is photo content tagged with its original name and MIME type.
// The local store keeps only these three values; upload clients build whatever
// request shape they need from them.
type Payload struct {
	Data        []byte
	Name        string
	ContentType string
}

func (p Payload) Reader() *bytes.Reader {
	return bytes.NewReader(p.Data)
}

func (p Payload) Size() int64 {
	return int64(len(p.Data))
}

func (p Payload) MIMEType() string {
	if p.ContentType == "" {
		return defaultContentType
	}
	return p.ContentType
}
