package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash implements I4: sha256 of the concatenated transcript content
// of every session in a local checkpoint, each session followed by its
// Prompts fallback text, truncated to 16 hex characters.
func ContentHash(cp ParsedCheckpoint) string {
	h := sha256.New()
	for _, s := range cp.Sessions {
		for _, e := range s.Transcript {
			h.Write([]byte(e.Content))
		}
		h.Write([]byte(s.Prompts))
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:16]
}
