// Package naming computes local file names for mirrored images.
package naming

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nao1215/mdmirror/internal/link"
	"github.com/nao1215/mdmirror/internal/model"
)

// AscendingPrefix is the file name prefix used by the ascending policy.
const AscendingPrefix = "image-"

// Namer derives local file names under a fixed NamingPolicy.
// The original and ascending policies are deterministic so that a re-run
// finds the files written by a previous run.
type Namer struct {
	policy model.NamingPolicy

	// newID generates unique tokens for the uuid policy.
	newID func() string
}

// New creates a Namer for the given policy.
// Unknown policies fall back to NamingOriginal; callers validate the
// configuration before constructing a Namer.
func New(policy model.NamingPolicy) *Namer {
	if !policy.IsValid() {
		policy = model.NamingOriginal
	}
	return &Namer{
		policy: policy,
		newID:  func() string { return uuid.NewString() },
	}
}

// Policy returns the naming policy in use.
func (n *Namer) Policy() model.NamingPolicy {
	return n.policy
}

// Name returns the local file name for rawURL.
// ext is the image extension including the dot. counter is the per-document
// index of the reference and is only used by the ascending policy.
// The result always ends with ext.
func (n *Namer) Name(rawURL, ext string, counter int) string {
	switch n.policy {
	case model.NamingAscending:
		return AscendingPrefix + strconv.Itoa(counter) + ext
	case model.NamingUUID:
		return n.newID() + ext
	default:
		return originalName(rawURL, ext)
	}
}

// originalName keeps the last path segment of rawURL without its query.
func originalName(rawURL, ext string) string {
	segment := rawURL
	if i := strings.LastIndexByte(segment, '/'); i >= 0 {
		segment = segment[i+1:]
	}
	segment = link.StripQuery(segment)

	if strings.HasSuffix(strings.ToLower(segment), strings.ToLower(ext)) {
		return segment
	}
	return segment + ext
}
