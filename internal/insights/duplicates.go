package insights

import (
	"regexp"
	"strings"

	"github.com/agentmemory/agentmemory/internal/store"
)

// duplicateSimilarityThreshold is the spec's "expected ≥0.7 jaccard-like
// similarity" for clustering.
const duplicateSimilarityThreshold = 0.7

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// bodyShingles tokenizes a symbol body into a lowercased identifier set,
// the unit the jaccard-like comparison runs over.
func bodyShingles(body string) map[string]bool {
	shingles := map[string]bool{}
	for _, tok := range identifierRe.FindAllString(body, -1) {
		shingles[strings.ToLower(tok)] = true
	}
	return shingles
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// findDuplicateClusters groups records into clusters of >=2 members. Each
// not-yet-assigned record seeds a cluster and takes in every later
// unassigned record whose body is at least threshold-similar to the seed;
// members are not compared with each other. O(n^2) shingle comparisons,
// acceptable at the §4.7 10 000-row cap.
func findDuplicateClusters(records []store.StoredCodeRecord) []DuplicateCluster {
	shingles := make([]map[string]bool, len(records))
	for i, r := range records {
		shingles[i] = bodyShingles(r.Body)
	}

	assigned := make([]bool, len(records))
	var clusters []DuplicateCluster

	for i := range records {
		if assigned[i] || len(shingles[i]) == 0 {
			continue
		}
		members := []string{records[i].ID}
		minSim := 1.0
		for j := i + 1; j < len(records); j++ {
			if assigned[j] {
				continue
			}
			sim := jaccard(shingles[i], shingles[j])
			if sim >= duplicateSimilarityThreshold {
				members = append(members, records[j].ID)
				assigned[j] = true
				if sim < minSim {
					minSim = sim
				}
			}
		}
		if len(members) >= 2 {
			assigned[i] = true
			clusters = append(clusters, DuplicateCluster{Members: members, Similarity: minSim})
		}
	}
	return clusters
}

// directoryRollup truncates a path's directory to its first two meaningful
// components, skipping every "src" segment (§4.7: "truncates the path to
// two meaningful components, excluding src").
func directoryRollup(path string) string {
	dir := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		dir = path[:idx]
	} else {
		return "."
	}
	parts := strings.Split(dir, "/")
	filtered := parts[:0]
	for _, p := range parts {
		if p != "src" && p != "" {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return "."
	}
	if len(filtered) > 2 {
		filtered = filtered[:2]
	}
	return strings.Join(filtered, "/")
}
