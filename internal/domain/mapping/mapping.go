// Package mapping implements the declarative field-transform pipeline
// that converts records between their canonical (Connec) and external
// (Shopify) shapes. A mapping is a static ordered table of field
// correspondences plus optional direction-specific post hooks; it is
// pure, stateless and total over well-formed input.
package mapping

import (
	"github.com/connec/shopify-connector/internal/domain/sync"
)

// Transform converts a single field value while it is written to the
// target record.
type Transform func(any) any

// Hook rewrites a mapped record after the declarative pass of one
// direction. It receives the original input and the declaratively
// built output and returns the output to use, which may be the same
// record mutated in place.
type Hook func(input, output sync.Record) sync.Record

// Field is one correspondence between a canonical-side path and an
// external-side path. Paths are slash-delimited and may address nested
// field bags. The side-specific transform is applied when writing to
// that side; a nil transform passes the value through unchanged. When
// Sub is set, the value is a nested record or an ordered sequence of
// records and Sub is applied element-wise, preserving order and length.
type Field struct {
	Connec            string
	External          string
	ConnecTransform   Transform
	ExternalTransform Transform
	Sub               *Mapping
}

// Mapping is an ordered field-correspondence table with optional post
// hooks, one per direction. Directionality need not be symmetric: a
// hook may derive fields the opposite direction never reads.
type Mapping struct {
	Fields []Field
	// AfterToExternal runs once after the canonical→external pass.
	AfterToExternal Hook
	// AfterToConnec runs once after the external→canonical pass.
	AfterToConnec Hook
}

// ToExternal maps a canonical record into its external shape. Absent
// source fields are treated as null and skipped, never an error.
func (m *Mapping) ToExternal(in sync.Record) sync.Record {
	out := sync.NewRecord()
	for _, f := range m.Fields {
		m.apply(in, out, f.Connec, f.External, f.ExternalTransform, f.Sub, false)
	}
	if m.AfterToExternal != nil {
		out = m.AfterToExternal(in, out)
	}
	return out
}

// ToConnec maps an external record into its canonical shape.
func (m *Mapping) ToConnec(in sync.Record) sync.Record {
	out := sync.NewRecord()
	for _, f := range m.Fields {
		m.apply(in, out, f.External, f.Connec, f.ConnecTransform, f.Sub, true)
	}
	if m.AfterToConnec != nil {
		out = m.AfterToConnec(in, out)
	}
	return out
}

func (m *Mapping) apply(in, out sync.Record, from, to string, transform Transform, sub *Mapping, toConnec bool) {
	v, ok := in.Lookup(from)
	if !ok || v == nil {
		return
	}

	if sub != nil {
		out.Set(to, sub.applyValue(v, toConnec))
		return
	}

	if transform != nil {
		v = transform(v)
	}
	out.Set(to, v)
}

// applyValue runs a sub-mapper over a nested value: element-wise over
// sequences, directly over single records. Non-record values pass
// through unchanged.
func (m *Mapping) applyValue(v any, toConnec bool) any {
	mapOne := m.ToExternal
	if toConnec {
		mapOne = m.ToConnec
	}

	if rec, ok := sync.AsRecord(v); ok {
		return mapOne(rec)
	}
	if list, ok := sync.AsRecordList(v); ok {
		out := make([]sync.Record, len(list))
		for i, rec := range list {
			out[i] = mapOne(rec)
		}
		return out
	}
	return v
}
