package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the storage layer. Field order is the wire format:
// append new fields at the end only.

// IDMUS serializes an ID as a varint.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

// NotebookRecordMUS serializes a NotebookRecord, including its metadata.
var NotebookRecordMUS = notebookRecordMUS{}

type notebookRecordMUS struct{}

func (notebookRecordMUS) Marshal(v NotebookRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.URL, bs[n:])
	n += ord.String.Marshal(string(v.Source), bs[n:])
	n += ord.String.Marshal(string(v.Content), bs[n:])
	n += timeMUS.Marshal(v.DateSaved, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	n += ord.String.Marshal(v.Language, bs[n:])
	n += ord.String.Marshal(string(v.CourseLevel), bs[n:])
	n += ord.String.Marshal(v.CSConcepts, bs[n:])
	n += ord.String.Marshal(v.Context, bs[n:])
	n += ord.String.Marshal(string(v.SequencePosition), bs[n:])
	n += ord.String.Marshal(v.ContentSample, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += ord.Bool.Marshal(v.MetadataProcessed, bs[n:])
	return n
}

func (notebookRecordMUS) Unmarshal(bs []byte) (v NotebookRecord, n int, err error) {
	var (
		n1  int
		str string
	)
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.URL, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if str, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.Source = Source(str)
	if str, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if str != "" {
		v.Content = []byte(str)
	}
	if v.DateSaved, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Language, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if str, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.CourseLevel = CourseLevel(str)
	if v.CSConcepts, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Context, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if str, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.SequencePosition = SequencePosition(str)
	if v.ContentSample, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.MetadataProcessed, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	return
}

func (notebookRecordMUS) Size(v NotebookRecord) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.URL)
	size += ord.String.Size(string(v.Source))
	size += ord.String.Size(string(v.Content))
	size += timeMUS.Size(v.DateSaved)
	size += timeMUS.Size(v.UpdatedAt)
	size += ord.String.Size(v.Language)
	size += ord.String.Size(string(v.CourseLevel))
	size += ord.String.Size(v.CSConcepts)
	size += ord.String.Size(v.Context)
	size += ord.String.Size(string(v.SequencePosition))
	size += ord.String.Size(v.ContentSample)
	size += vectorMUS.Size(v.Vector)
	size += ord.Bool.Size(v.MetadataProcessed)
	return size
}

// timeMUS stores timestamps as Unix microseconds. The zero time round-trips as zero.
var timeMUS = timeUnixMicroMUS{}

type timeUnixMicroMUS struct{}

func (timeUnixMicroMUS) Marshal(v time.Time, bs []byte) (n int) {
	var micros int64
	if !v.IsZero() {
		micros = v.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func (timeUnixMicroMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (timeUnixMicroMUS) Size(v time.Time) (size int) {
	var micros int64
	if !v.IsZero() {
		micros = v.UnixMicro()
	}
	return varint.Int64.Size(micros)
}

// vectorMUS stores a presence flag, a length and the raw float32 elements,
// so a nil vector stays nil.
var vectorMUS = float32SliceMUS{}

type float32SliceMUS struct{}

func (float32SliceMUS) Marshal(v []float32, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v == nil {
		return n
	}
	n += varint.Uint64.Marshal(uint64(len(v)), bs[n:])
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (float32SliceMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	length, n1, err := varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	// Each element takes four bytes; reject lengths the buffer cannot hold.
	if length > uint64(len(bs)-n)/4 {
		return nil, n, ErrTruncatedVector
	}
	v = make([]float32, length)
	for i := range v {
		if v[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += n1
	}
	return v, n, nil
}

func (float32SliceMUS) Size(v []float32) (size int) {
	size = ord.Bool.Size(v != nil)
	if v == nil {
		return size
	}
	size += varint.Uint64.Size(uint64(len(v)))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}
