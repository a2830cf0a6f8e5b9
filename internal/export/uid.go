package export

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// uidNamespace scopes resource UIDs to this converter.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("wcs-converter"))

const uidAlphabet = "abcdefghijklmnopqrstuvwxy0123456789"

// UID returns a stable engine resource UID for a resource path, so reconverting a model
// keeps references from other scenes valid.
func UID(resPath string) string {
	id := uuid.NewSHA1(uidNamespace, []byte(resPath))
	var n uint64
	for _, b := range id[:8] {
		n = n<<8 | uint64(b)
	}
	n &= 1<<63 - 1
	var sb strings.Builder
	for n > 0 {
		sb.WriteByte(uidAlphabet[n%uint64(len(uidAlphabet))])
		n /= uint64(len(uidAlphabet))
	}
	if sb.Len() == 0 {
		sb.WriteByte(uidAlphabet[0])
	}
	return "uid://" + sb.String()
}

// resourceID is a short per-file id for ext_resource and sub_resource entries.
func resourceID(n int, key string) string {
	return fmt.Sprintf("%d_%s", n, uuid.NewSHA1(uidNamespace, []byte(key)).String()[:5])
}
