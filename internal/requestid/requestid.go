package requestid

import (
	"strings"

	"github.com/google/uuid"
)

const HeaderKey = "X-Request-Id"

const prefix = "req_"

// Gen generates a request id: "req_" followed by a random uuid without
// dashes.
func Gen() string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sanitize returns id when it is usable as a client supplied request id,
// and "" otherwise. Ids are limited to 128 printable ASCII characters.
func Sanitize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 128 {
		return ""
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return ""
		}
	}
	return id
}
