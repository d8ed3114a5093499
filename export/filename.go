package export

import (
	"fmt"
	"net/url"
	"strings"
)

const suffix = ".ipynb"

// Filename derives the export file name for a notebook URL.
// n numbers the fallback name for URLs that are neither Colab nor GitHub.
func Filename(link string, n int) string {
	var name string
	switch {
	case strings.Contains(link, "colab.research.google.com"):
		segments := pathSegments(link)
		if len(segments) > 0 {
			name = "colab_" + segments[len(segments)-1]
		}
	case strings.Contains(link, "github.com"), strings.Contains(link, "raw.githubusercontent.com"):
		segments := pathSegments(link)
		if len(segments) >= 3 {
			name = "github_" + segments[0] + "_" + segments[1] + "_" + segments[len(segments)-1]
		}
	}
	if name == "" {
		name = fmt.Sprintf("notebook_%d", n)
	}

	name = sanitize(name)
	if !strings.HasSuffix(name, suffix) {
		name += suffix
	}
	return name
}

func pathSegments(link string) []string {
	u, err := url.Parse(link)
	if err != nil {
		return nil
	}
	var out []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
}

// namer hands out file names that are unique within one export.
// Suffixed names are reserved too, so a later URL whose own name matches an
// earlier suffix gets a fresh one.
type namer struct {
	used map[string]bool
}

func newNamer() *namer {
	return &namer{used: make(map[string]bool)}
}

func (n *namer) next(link string, count int) string {
	name := Filename(link, count)
	base := strings.TrimSuffix(name, suffix)
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, suffix)
	}
	n.used[name] = true
	return name
}
