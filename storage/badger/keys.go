package badger

import (
	"encoding/binary"

	"github.com/poiesic/nbharvest/core"
)

// Key prefixes for different data types
const (
	notebookPrefix = "nbrec:"
)

// makeNotebookKey generates a key for a notebook by ID.
// Format: prefix + big endian ID, so iteration order is stable.
func makeNotebookKey(id core.ID) []byte {
	buf := make([]byte, len(notebookPrefix)+8)
	offset := copy(buf, notebookPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeNotebookKeyForURL generates the key a URL is stored under.
func makeNotebookKeyForURL(url string) []byte {
	return makeNotebookKey(core.IDFromContent(url))
}
