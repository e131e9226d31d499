// Package fileid derives stable document IDs.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

const contentPrefix = "doc:"

// ContentDocID identifies an upload by its name and bytes. The hash is shortened to
// 16 hex characters since it only has to be unique within one session.
func ContentDocID(name string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(content)
	return contentPrefix + hex.EncodeToString(h.Sum(nil))[:16]
}
