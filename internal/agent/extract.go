package agent

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// artifactPlaceholder replaces each extracted artifact span in the
// user-visible message.
const artifactPlaceholder = "[Artifact created]"

// spanRe matches one tagged artifact span. Attributes are parsed separately
// so their order does not matter.
var (
	spanRe = regexp.MustCompile(`(?s)<artifact\s+([^>]*?)>(.*?)</artifact>`)
	attrRe = regexp.MustCompile(`(\w+)="([^"]*)"`)
)

// ExtractArtifacts scans raw model output for tagged artifact spans, returns
// the artifacts in order of appearance, and the cleaned message with each
// span replaced by a placeholder. Spans without a type attribute are not
// artifacts and pass through verbatim.
func ExtractArtifacts(raw string) (string, []Artifact) {
	var artifacts []Artifact
	var clean strings.Builder
	last := 0

	for _, m := range spanRe.FindAllStringSubmatchIndex(raw, -1) {
		attrs := parseAttrs(raw[m[2]:m[3]])
		kind := attrs["type"]
		if kind == "" {
			continue
		}
		title := attrs["title"]
		if title == "" {
			title = fmt.Sprintf("Artifact %d", len(artifacts)+1)
		}
		artifacts = append(artifacts, Artifact{
			ID:        uuid.NewString(),
			Type:      kind,
			Title:     title,
			Content:   strings.TrimSpace(raw[m[4]:m[5]]),
			Language:  attrs["language"],
			CreatedAt: time.Now(),
		})
		clean.WriteString(raw[last:m[0]])
		clean.WriteString(artifactPlaceholder)
		last = m[1]
	}
	clean.WriteString(raw[last:])
	return clean.String(), artifacts
}

func parseAttrs(s string) map[string]string {
	attrs := map[string]string{}
	for _, m := range attrRe.FindAllStringSubmatch(s, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}
