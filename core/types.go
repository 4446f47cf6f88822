package core

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ID is an opaque backend identifier. The backend may send it as a JSON string or number.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// FileHandle is an uploaded file kept in memory until the draft holding it is submitted.
type FileHandle struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Content     []byte `json:"-"`
}

func NewFileHandle(name, contentType string, content []byte) *FileHandle {
	return &FileHandle{
		Name:        name,
		ContentType: contentType,
		Size:        len(content),
		Content:     content,
	}
}

func (f *FileHandle) Reader() io.Reader {
	return bytes.NewReader(f.Content)
}

// Timestamp is a point in time sent by the backend, with or without a zone offset.
// Timestamps without an offset are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		ts.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, *s, time.UTC); err == nil {
			ts.Time = t
			return nil
		}
	}
	return errors.Errorf("invalid timestamp %q", *s)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}
