package chunk

// DefaultFilenameDenylist filters out filename-shaped tokens that a naive
// path/symbol scan over free text tends to false-positive on — framework
// names that read like file paths (§4.3, Q3). Configurable per Chunker so
// callers aren't stuck with this exact list.
var DefaultFilenameDenylist = []string{
	"node.js", "next.js", "vue.js", "nuxt.js", "express.js",
}

func denylistSet(entries []string) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e] = true
	}
	return set
}
