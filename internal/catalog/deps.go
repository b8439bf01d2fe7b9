package catalog

import (
	"fmt"
	"strings"

	"github.com/starford/atelier/internal/canonical"
	"github.com/starford/atelier/internal/schema"
)

// IssueKind classifies a dependency problem.
type IssueKind string

const (
	IssueUnpinned   IssueKind = "unpinned"
	IssueNotAllowed IssueKind = "not_allowed"
	IssueConflict   IssueKind = "conflict"
)

// DependencyIssue is one violated dependency constraint.
type DependencyIssue struct {
	Kind       IssueKind `json:"kind"`
	BlockID    string    `json:"blockId"`
	Dependency string    `json:"dependency"`
	Version    string    `json:"version"`
	Message    string    `json:"message"`
}

// IsRange reports whether version uses a caret or tilde range.
func IsRange(version string) bool {
	v := strings.TrimSpace(version)
	return strings.HasPrefix(v, "^") || strings.HasPrefix(v, "~")
}

// ValidateDependencies checks every (block, dependency, version) triple for
// an exact pin, membership in allow (when non-empty) and agreement with the
// first version seen for the same dependency. All violations are reported,
// in manifest order and then dependency-name order.
func ValidateDependencies(manifests []schema.BlockManifest, allow []string) []DependencyIssue {
	allowed := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		allowed[name] = struct{}{}
	}

	type firstSeen struct {
		version string
		blockID string
	}
	seen := make(map[string]firstSeen)
	issues := []DependencyIssue{}

	for _, m := range manifests {
		for _, name := range canonical.SortedKeys(m.Dependencies) {
			version := m.Dependencies[name]
			issue := func(kind IssueKind, msg string) {
				issues = append(issues, DependencyIssue{
					Kind:       kind,
					BlockID:    m.BlockID,
					Dependency: name,
					Version:    version,
					Message:    msg,
				})
			}

			if IsRange(version) {
				issue(IssueUnpinned, fmt.Sprintf("%s: dependency %q must use exact version pin, got %q", m.BlockID, name, version))
			}
			if len(allowed) > 0 {
				if _, ok := allowed[name]; !ok {
					issue(IssueNotAllowed, fmt.Sprintf("%s: dependency %q is not in the allow-list", m.BlockID, name))
				}
			}
			first, ok := seen[name]
			if !ok {
				seen[name] = firstSeen{version: version, blockID: m.BlockID}
				continue
			}
			if first.version != version {
				issue(IssueConflict, fmt.Sprintf("%s: dependency %q version conflict: %s (%s) vs %s",
					m.BlockID, name, first.version, first.blockID, version))
			}
		}
	}
	return issues
}
