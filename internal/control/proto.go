// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package control

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/event"
)

// The proto encoding of an event stream is the wire form of
//
//	message EventStream {
//	  repeated RunStart run_start = 1;
//	  repeated RunLog run_log = 2;
//	  ...
//	}
//
// where each event is written as one length-delimited field whose number
// identifies its type. Messages are hand-encoded with protowire; field
// numbers below must never be reused.
const (
	kindRunStart    protowire.Number = 1
	kindRunLog      protowire.Number = 2
	kindRunEnd      protowire.Number = 3
	kindUnitFailure protowire.Number = 4
	kindUnitStart   protowire.Number = 5
	kindUnitEnd     protowire.Number = 6
	kindCaseStart   protowire.Number = 7
	kindCaseLog     protowire.Number = 8
	kindCaseError   protowire.Number = 9
	kindCaseEnd     protowire.Number = 10
	kindOutputChunk protowire.Number = 11
	kindHeartbeat   protowire.Number = 12
)

// maxProtoMessageSize bounds a single decoded message.
const maxProtoMessageSize = 64 << 20

// protoEncoder appends fields to a message. Zero values are omitted, as in
// proto3.
type protoEncoder []byte

func (e *protoEncoder) time(num protowire.Number, t time.Time) {
	if t.IsZero() {
		return
	}
	e.varint(num, uint64(t.UnixNano()))
}

func (e *protoEncoder) varint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.VarintType)
	*e = protowire.AppendVarint(*e, v)
}

func (e *protoEncoder) bool(num protowire.Number, v bool) {
	if v {
		e.varint(num, 1)
	}
}

func (e *protoEncoder) string(num protowire.Number, s string) {
	if s == "" {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendString(*e, s)
}

func (e *protoEncoder) strings(num protowire.Number, ss []string) {
	for _, s := range ss {
		*e = protowire.AppendTag(*e, num, protowire.BytesType)
		*e = protowire.AppendString(*e, s)
	}
}

func (e *protoEncoder) bytes(num protowire.Number, b []byte) {
	if len(b) == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendBytes(*e, b)
}

func (e *protoEncoder) error(num protowire.Number, v *event.Error) {
	var m protoEncoder
	m.string(1, v.Reason)
	m.string(2, v.File)
	m.varint(3, uint64(v.Line))
	m.string(4, v.Stack)
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendBytes(*e, m)
}

// encodeProto returns the field number and message encoding of ev.
func encodeProto(ev event.Event) (protowire.Number, []byte, error) {
	var m protoEncoder
	m.time(1, ev.Timestamp())
	switch v := ev.(type) {
	case *event.RunStart:
		m.string(2, v.RunID)
		m.strings(3, v.Units)
		m.varint(4, uint64(v.Seed))
		return kindRunStart, m, nil
	case *event.RunLog:
		m.string(2, v.Text)
		return kindRunLog, m, nil
	case *event.RunEnd:
		m.string(2, v.Fault)
		return kindRunEnd, m, nil
	case *event.UnitFailure:
		m.string(2, v.Unit)
		m.error(3, &v.Error)
		return kindUnitFailure, m, nil
	case *event.UnitStart:
		m.string(2, v.Unit)
		m.strings(3, v.Cases)
		return kindUnitStart, m, nil
	case *event.UnitEnd:
		m.string(2, v.Unit)
		return kindUnitEnd, m, nil
	case *event.CaseStart:
		m.string(2, v.Unit)
		m.string(3, v.Case)
		return kindCaseStart, m, nil
	case *event.CaseLog:
		m.string(2, v.Unit)
		m.string(3, v.Case)
		m.string(4, v.Text)
		return kindCaseLog, m, nil
	case *event.CaseError:
		m.string(2, v.Unit)
		m.string(3, v.Case)
		m.error(4, &v.Error)
		return kindCaseError, m, nil
	case *event.CaseEnd:
		m.string(2, v.Unit)
		m.string(3, v.Case)
		m.varint(4, uint64(v.Duration))
		m.bool(5, v.Failed)
		return kindCaseEnd, m, nil
	case *event.OutputChunk:
		m.varint(2, uint64(v.Stream))
		m.bytes(3, v.Data)
		return kindOutputChunk, m, nil
	case *event.Heartbeat:
		return kindHeartbeat, m, nil
	default:
		return 0, nil, errors.Errorf("unable to encode message of unknown type %T", ev)
	}
}

// protoField is a decoded scalar or length-delimited field value.
type protoField struct {
	num    protowire.Number
	varint uint64
	bytes  []byte
}

func (f protoField) time() time.Time   { return time.Unix(0, int64(f.varint)).UTC() }
func (f protoField) string() string    { return string(f.bytes) }
func (f protoField) int64() int64      { return int64(f.varint) }
func (f protoField) copyBytes() []byte { return append([]byte(nil), f.bytes...) }
func (f protoField) errorValue() (event.Error, error) {
	var e event.Error
	err := eachField(f.bytes, func(g protoField) {
		switch g.num {
		case 1:
			e.Reason = g.string()
		case 2:
			e.File = g.string()
		case 3:
			e.Line = int(g.int64())
		case 4:
			e.Stack = g.string()
		}
	})
	return e, err
}

// eachField calls fn for every varint and length-delimited field in b.
// Fields of other wire types are skipped.
func eachField(b []byte, fn func(f protoField)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := protoField{num: num}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		fn(f)
	}
	return nil
}

// decodeProto decodes a message of the given kind.
func decodeProto(kind protowire.Number, b []byte) (event.Event, error) {
	var ev event.Event
	var fn func(f protoField) error
	switch kind {
	case kindRunStart:
		v := &event.RunStart{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.RunID = f.string()
			case 3:
				v.Units = append(v.Units, f.string())
			case 4:
				v.Seed = f.int64()
			}
			return nil
		}
	case kindRunLog:
		v := &event.RunLog{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Text = f.string()
			}
			return nil
		}
	case kindRunEnd:
		v := &event.RunEnd{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Fault = f.string()
			}
			return nil
		}
	case kindUnitFailure:
		v := &event.UnitFailure{}
		ev, fn = v, func(f protoField) error {
			var err error
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Unit = f.string()
			case 3:
				v.Error, err = f.errorValue()
			}
			return err
		}
	case kindUnitStart:
		v := &event.UnitStart{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Unit = f.string()
			case 3:
				v.Cases = append(v.Cases, f.string())
			}
			return nil
		}
	case kindUnitEnd:
		v := &event.UnitEnd{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Unit = f.string()
			}
			return nil
		}
	case kindCaseStart:
		v := &event.CaseStart{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Unit = f.string()
			case 3:
				v.Case = f.string()
			}
			return nil
		}
	case kindCaseLog:
		v := &event.CaseLog{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Unit = f.string()
			case 3:
				v.Case = f.string()
			case 4:
				v.Text = f.string()
			}
			return nil
		}
	case kindCaseError:
		v := &event.CaseError{}
		ev, fn = v, func(f protoField) error {
			var err error
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Unit = f.string()
			case 3:
				v.Case = f.string()
			case 4:
				v.Error, err = f.errorValue()
			}
			return err
		}
	case kindCaseEnd:
		v := &event.CaseEnd{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Unit = f.string()
			case 3:
				v.Case = f.string()
			case 4:
				v.Duration = time.Duration(f.int64())
			case 5:
				v.Failed = f.varint != 0
			}
			return nil
		}
	case kindOutputChunk:
		v := &event.OutputChunk{}
		ev, fn = v, func(f protoField) error {
			switch f.num {
			case 1:
				v.Time = f.time()
			case 2:
				v.Stream = event.Stream(f.varint)
			case 3:
				v.Data = f.copyBytes()
			}
			return nil
		}
	case kindHeartbeat:
		v := &event.Heartbeat{}
		ev, fn = v, func(f protoField) error {
			if f.num == 1 {
				v.Time = f.time()
			}
			return nil
		}
	default:
		return nil, errors.Errorf("unknown message kind %d", kind)
	}

	var firstErr error
	if err := eachField(b, func(f protoField) {
		if err := fn(f); err != nil && firstErr == nil {
			firstErr = err
		}
	}); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return ev, nil
}

// ProtoWriter writes events in the proto encoding.
// It is safe to call its methods concurrently from multiple goroutines.
type ProtoWriter struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Writer = &ProtoWriter{}

// NewProtoWriter returns a new ProtoWriter for writing to w.
func NewProtoWriter(w io.Writer) *ProtoWriter {
	return &ProtoWriter{w: w}
}

// WriteMessage writes ev.
func (pw *ProtoWriter) WriteMessage(ev event.Event) error {
	kind, msg, err := encodeProto(ev)
	if err != nil {
		return err
	}
	b := protowire.AppendTag(nil, kind, protowire.BytesType)
	b = protowire.AppendBytes(b, msg)

	pw.mu.Lock()
	defer pw.mu.Unlock()
	_, err = pw.w.Write(b)
	return err
}

// ProtoReader reads events written by ProtoWriter.
type ProtoReader struct {
	r *bufio.Reader
}

var _ Reader = &ProtoReader{}

// NewProtoReader returns a new ProtoReader for reading from r.
func NewProtoReader(r io.Reader) *ProtoReader {
	return &ProtoReader{r: bufio.NewReader(r)}
}

// More returns true if more messages are available.
func (pr *ProtoReader) More() bool {
	_, err := pr.r.Peek(1)
	return err == nil
}

// ReadMessage reads and returns the next message.
func (pr *ProtoReader) ReadMessage() (event.Event, error) {
	tag, err := binary.ReadUvarint(pr.r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read message tag")
	}
	kind, typ := protowire.DecodeTag(tag)
	if typ != protowire.BytesType {
		return nil, errors.Errorf("unexpected wire type %d for message kind %d", typ, kind)
	}
	size, err := binary.ReadUvarint(pr.r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read message size")
	}
	if size > maxProtoMessageSize {
		return nil, errors.Errorf("message of %d bytes is too large", size)
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(pr.r, b); err != nil {
		return nil, errors.Wrap(err, "unable to read message")
	}
	ev, err := decodeProto(kind, b)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode message")
	}
	return ev, nil
}
