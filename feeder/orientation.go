package feeder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/notargets/netgenplugin/types"
)

/*
Inclusion is the boundary element selection read from an element orientation
file: an element takes part in the run only when its ID is present, and its
flag tells whether its node order must be reversed. Without a file every
boundary element is included, none reversed.
*/
type Inclusion struct {
	all   bool
	flags map[int64]bool
}

func IncludeAll() *Inclusion { return &Inclusion{all: true} }

func NewInclusion(flags map[int64]bool) *Inclusion {
	if flags == nil {
		flags = make(map[int64]bool)
	}
	return &Inclusion{flags: flags}
}

func (in *Inclusion) IncludesAll() bool { return in.all }

// Len is the number of listed elements, -1 when every element is included
func (in *Inclusion) Len() int {
	if in.all {
		return -1
	}
	return len(in.flags)
}

func (in *Inclusion) Lookup(id int64) (included, reversed bool) {
	if in.all {
		return true, false
	}
	reversed, included = in.flags[id]
	return
}

const orientationRecordSize = 8 + 1

/*
ReadOrientationFile reads the element orientation side file: a little endian
int32 count followed by count records of {int64 element ID, uint8 flag}. An
empty path selects every element. Any truncation is a *types.FormatError.
*/
func ReadOrientationFile(path string) (in *Inclusion, err error) {
	if path == "" {
		return IncludeAll(), nil
	}
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	var (
		r     = bytes.NewReader(data)
		count int32
	)
	if err = binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, &types.FormatError{File: path, Field: "element count", Err: truncated(err)}
	}
	if count < 0 {
		return nil, &types.FormatError{File: path, Field: "element count", Err: fmt.Errorf("negative count %d", count)}
	}
	if int64(r.Len()) < int64(count)*orientationRecordSize {
		// find the first incomplete record for the message
		rec := r.Len()/orientationRecordSize + 1
		field := "element id"
		if r.Len()%orientationRecordSize >= 8 {
			field = "orientation flag"
		}
		return nil, &types.FormatError{File: path, Line: rec, Field: field,
			Err: fmt.Errorf("file holds %d of %d records: %w", rec-1, count, io.ErrUnexpectedEOF)}
	}
	flags := make(map[int64]bool, count)
	for i := int32(0); i < count; i++ {
		var (
			id   int64
			flag uint8
		)
		// the length check above guarantees both reads
		_ = binary.Read(r, binary.LittleEndian, &id)
		_ = binary.Read(r, binary.LittleEndian, &flag)
		flags[id] = flag != 0
	}
	return NewInclusion(flags), nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// WriteOrientationFile writes flags in ascending element ID order
func WriteOrientationFile(path string, flags map[int64]bool) error {
	var (
		buf = bytes.NewBuffer(nil)
		ids = make([]int64, 0, len(flags))
	)
	for id := range flags {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	_ = binary.Write(buf, binary.LittleEndian, int32(len(ids)))
	for _, id := range ids {
		var flag uint8
		if flags[id] {
			flag = 1
		}
		_ = binary.Write(buf, binary.LittleEndian, id)
		_ = binary.Write(buf, binary.LittleEndian, flag)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
