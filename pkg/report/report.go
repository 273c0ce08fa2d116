// Package report turns a monitor.Record into the structured document handed to
// a transmitter. Key names are a wire contract with the remote collector.
package report

import (
	"bytes"
	"encoding/json"

	"github.com/telemetry-agent/pkg/monitor"
)

const (
	KeyCPUPercent   = "cpu_percent"
	KeyUsedMemory   = "used_memory_in_bytes"
	KeyTotalMemory  = "total_memory_in_bytes"
	KeyProcessCount = "process_count"
	KeyDiskRead     = "total_disk_read"
	KeyDiskWrite    = "total_disk_write"
)

// Field is a single named scalar of a Document.
type Field struct {
	Key   string
	Value any
}

// Document is an ordered mapping of named scalar fields.
type Document []Field

// Build maps a record onto the fixed field set. It cannot fail: every Record
// already satisfies its bounds.
func Build(r monitor.Record) Document {
	return Document{
		{Key: KeyCPUPercent, Value: r.CPUPercent()},
		{Key: KeyUsedMemory, Value: r.UsedMemory()},
		{Key: KeyTotalMemory, Value: r.TotalMemory()},
		{Key: KeyProcessCount, Value: r.ProcessCount()},
		{Key: KeyDiskRead, Value: r.DiskBytesRead()},
		{Key: KeyDiskWrite, Value: r.DiskBytesWrite()},
	}
}

// Get returns the value stored under key.
func (d Document) Get(key string) (any, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in document order.
func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Map copies the document into an unordered map.
func (d Document) Map() map[string]any {
	m := make(map[string]any, len(d))
	for _, f := range d {
		m[f.Key] = f.Value
	}
	return m
}

// MarshalJSON encodes the document as a JSON object keeping field order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String renders the document as compact JSON, for logs.
func (d Document) String() string {
	b, err := d.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}
