package domain

import (
	"path"
	"strings"
	"time"
)

// LinkMarker is the single-line comment separating user-authored
// content from the auto-managed link region. Everything before it is
// never modified by the engine; everything after it is replaced
// wholesale on reconciliation.
const LinkMarker = "<!-- relink -->"

// LinkEntry records that the engine previously inserted a link from
// source to target. Ledger entries are distinct from scores: a link
// may remain in the ledger after its score drops below threshold,
// which is what triggers its removal.
type LinkEntry struct {
	SourceID   string
	TargetID   string
	InsertedAt time.Time
}

// SplitAtMarker splits note content at the link marker. The returned
// body excludes the marker line; region is the current auto-managed
// content after it. found is false when the note carries no marker.
func SplitAtMarker(content string) (body, region string, found bool) {
	idx := markerIndex(content)
	if idx < 0 {
		return content, "", false
	}
	body = content[:idx]
	rest := content[idx+len(LinkMarker):]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[i+1:]
	} else {
		rest = ""
	}
	return body, rest, true
}

// ReplaceLinkRegion rewrites the auto-managed region with the given
// lines, leaving everything before the marker untouched. Returns the
// content unchanged with ok=false when the marker is absent.
func ReplaceLinkRegion(content string, lines []string) (string, bool) {
	body, _, found := SplitAtMarker(content)
	if !found {
		return content, false
	}
	var b strings.Builder
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") && body != "" {
		b.WriteByte('\n')
	}
	b.WriteString(LinkMarker)
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), true
}

// FormatWikiLink renders a link line for the auto-managed region.
func FormatWikiLink(displayName string) string {
	return "- [[" + displayName + "]]"
}

// DisplayNameFromPath derives a link display name from a vault path,
// used when the target note cannot be resolved.
func DisplayNameFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// markerIndex locates the marker at the start of a line.
func markerIndex(content string) int {
	if strings.HasPrefix(content, LinkMarker) {
		return 0
	}
	idx := strings.Index(content, "\n"+LinkMarker)
	if idx < 0 {
		return -1
	}
	return idx + 1
}
