package reduce

import (
	"encoding/binary"
	"fmt"

	"github.com/llnl/mpileaks/internal/callpath"
	"github.com/llnl/mpileaks/internal/leakcheck"
)

// packList encodes entries as [size] followed, if size > 0, by size
// repetitions of [packed path][count]. Each path already carries its own
// module-id table (see internal/callpath), so unlike the original tool's
// single shared table per message, this format self-describes per entry;
// the cost is a few repeated module-name strings per list, traded for a
// callpath package that doesn't need a second, list-scoped pack routine.
func packList(entries []leakcheck.Entry) []byte {
	var buf []byte
	buf = appendUvarint(buf, uint64(len(entries)))
	for _, e := range entries {
		buf = e.Path.Pack(buf)
		buf = appendUvarint(buf, uint64(e.Count))
	}
	return buf
}

// unpackList decodes a payload produced by packList.
func unpackList(buf []byte) ([]leakcheck.Entry, error) {
	n, buf, err := readUvarint(buf)
	if err != nil {
		return nil, fmt.Errorf("reduce: unpack list size: %w", err)
	}
	out := make([]leakcheck.Entry, n)
	for i := range out {
		var path callpath.Path
		path, buf, err = callpath.Unpack(buf)
		if err != nil {
			return nil, fmt.Errorf("reduce: unpack entry %d path: %w", i, err)
		}
		var count uint64
		count, buf, err = readUvarint(buf)
		if err != nil {
			return nil, fmt.Errorf("reduce: unpack entry %d count: %w", i, err)
		}
		out[i] = leakcheck.Entry{Path: path, Count: int(count)}
	}
	return out, nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, nil, fmt.Errorf("reduce: malformed varint")
	}
	return v, buf[n:], nil
}
