package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// frontMatter is the subset of front-matter fields the engine reads
// and writes. Unknown fields are preserved verbatim on rewrite by
// round-tripping through a generic map.
type frontMatter struct {
	Tags []string `yaml:"tags"`
}

// SplitFrontMatter separates YAML front matter from the note body.
// The returned block excludes the delimiter lines. When the note has
// no front matter, block is empty and body is the full content.
func SplitFrontMatter(content string) (block, body string) {
	if !strings.HasPrefix(content, frontMatterDelim+"\n") &&
		content != frontMatterDelim {
		return "", content
	}
	rest := content[len(frontMatterDelim)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end < 0 {
		return "", content
	}
	block = rest[:end]
	body = rest[end+len(frontMatterDelim)+1:]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return block, body
}

// FrontMatterTags extracts the tags list from a note's front matter.
// Notes without front matter or without a tags field yield nil.
func FrontMatterTags(content string) []string {
	block, _ := SplitFrontMatter(content)
	if block == "" {
		return nil
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil
	}
	return fm.Tags
}

// UpsertFrontMatterTags returns the note content with its front-matter
// tags field replaced by tags, creating the front matter when absent.
// All other front-matter fields are preserved.
func UpsertFrontMatterTags(content string, tags []string) (string, error) {
	block, body := SplitFrontMatter(content)

	fields := map[string]any{}
	if block != "" {
		if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
			return "", err
		}
	}
	fields["tags"] = tags

	out, err := yaml.Marshal(fields)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(frontMatterDelim)
	b.WriteByte('\n')
	b.Write(out)
	b.WriteString(frontMatterDelim)
	b.WriteByte('\n')
	b.WriteString(body)
	return b.String(), nil
}

// HashableBody extracts the region of a note that participates in the
// content hash: everything between the front matter and the link
// marker. Edits to front matter or to the auto-managed link region do
// not change the hash, so they never trigger re-embedding.
func HashableBody(content string) string {
	_, body := SplitFrontMatter(content)
	body, _, _ = SplitAtMarker(body)
	return strings.TrimSpace(body)
}

// HashContent digests a note's hashable body.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(HashableBody(content)))
	return hex.EncodeToString(sum[:])
}
