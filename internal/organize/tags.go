package organize

import (
	"sort"
	"strings"

	"github.com/flemzord/mnemo/internal/record"
)

// TagNode is one root of the derived tag hierarchy.
type TagNode struct {
	Tag       string   `json:"tag"`
	Frequency int      `json:"frequency"`
	Related   []string `json:"related,omitempty"`
	Children  []string `json:"children,omitempty"`
}

// Hierarchy thresholds.
const (
	rootMinFrequency = 3
	relatedMinJoint  = 2
	maxRelatedTags   = 5
)

// knownChildTags maps semantic parent tags to child tags that don't share a
// textual prefix with them.
var knownChildTags = map[string][]string{
	"programming": {"javascript", "typescript", "python", "golang", "rust"},
	"work":        {"meeting", "email", "deadline", "report"},
	"health":      {"exercise", "sleep", "diet", "meditation"},
	"finance":     {"budget", "invoice", "tax", "investment"},
	"writing":     {"draft", "blog", "notes"},
}

// TagHierarchy derives a shallow parent/child tag structure from tag
// co-occurrence across all memories. Tags used at least rootMinFrequency
// times become roots; tags co-occurring at least relatedMinJoint times are
// related; a related tag becomes a child when it is rarer than the root and
// either textually nested with it or a known semantic child.
func TagHierarchy(memories []*record.Memory) []TagNode {
	freq := make(map[string]int)
	joint := make(map[string]map[string]int)

	for _, m := range memories {
		tags := make([]string, 0, len(m.Tags))
		for t := range tagSet(m.Tags) {
			tags = append(tags, t)
		}
		sort.Strings(tags)

		for _, t := range tags {
			freq[t]++
		}
		for i := 0; i < len(tags); i++ {
			for j := 0; j < len(tags); j++ {
				if i == j {
					continue
				}
				if joint[tags[i]] == nil {
					joint[tags[i]] = make(map[string]int)
				}
				joint[tags[i]][tags[j]]++
			}
		}
	}

	roots := make([]string, 0)
	for t, c := range freq {
		if c >= rootMinFrequency {
			roots = append(roots, t)
		}
	}
	sort.Strings(roots)

	nodes := make([]TagNode, 0, len(roots))
	for _, root := range roots {
		node := TagNode{Tag: root, Frequency: freq[root]}

		type related struct {
			tag   string
			count int
		}
		var rel []related
		for other, c := range joint[root] {
			if c >= relatedMinJoint {
				rel = append(rel, related{tag: other, count: c})
			}
		}
		sort.Slice(rel, func(i, j int) bool {
			if rel[i].count != rel[j].count {
				return rel[i].count > rel[j].count
			}
			return rel[i].tag < rel[j].tag
		})
		if len(rel) > maxRelatedTags {
			rel = rel[:maxRelatedTags]
		}

		for _, r := range rel {
			node.Related = append(node.Related, r.tag)
			if freq[r.tag] < freq[root] && isChildTag(root, r.tag) {
				node.Children = append(node.Children, r.tag)
			}
		}

		nodes = append(nodes, node)
	}
	return nodes
}

func isChildTag(parent, child string) bool {
	if strings.Contains(child, parent) || strings.Contains(parent, child) {
		return true
	}
	for _, known := range knownChildTags[parent] {
		if child == known {
			return true
		}
	}
	return false
}
