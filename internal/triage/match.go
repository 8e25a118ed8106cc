package triage

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/caderno-vivo/caderno/internal/model"
)

// namedRef is the common shape of every reference entity the matcher sees.
type namedRef struct {
	id   string
	name string
}

// matchByContainment resolves the first reference whose name appears inside
// the content, trying longest names first so a specific subcategory beats
// the shorter generic name it extends. Returns "" when nothing matches.
func matchByContainment(content string, refs []namedRef) string {
	text := strings.ToLower(content)

	sorted := make([]namedRef, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].name) > len(sorted[j].name)
	})

	for _, ref := range sorted {
		name := strings.ToLower(strings.TrimSpace(ref.name))
		if name == "" {
			continue
		}
		if strings.Contains(text, name) {
			return ref.id
		}
	}
	return ""
}

// MatchCategory resolves a category mentioned anywhere in the content,
// longest name first.
func MatchCategory(content string, categories []model.Category) string {
	refs := make([]namedRef, len(categories))
	for i, c := range categories {
		refs[i] = namedRef{id: c.ID, name: c.Name}
	}
	return matchByContainment(content, refs)
}

// MatchAccount resolves an account mentioned anywhere in the content,
// longest name first.
func MatchAccount(content string, accounts []model.Account) string {
	refs := make([]namedRef, len(accounts))
	for i, a := range accounts {
		refs[i] = namedRef{id: a.ID, name: a.Name}
	}
	return matchByContainment(content, refs)
}

// matchClientByName fuzzily resolves a captured name span against known
// clients. Containment runs both directions because reviewers type partial
// names and messages carry extra words. Among multiple survivors the
// preference order is exact match, then a name starting with the search
// string, then the longest name; edit distance breaks remaining ties.
func matchClientByName(search string, clients []model.Client) string {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return ""
	}

	type scored struct {
		id     string
		name   string
		exact  bool
		prefix bool
		dist   int
	}

	var candidates []scored
	for _, c := range clients {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			continue
		}
		if !strings.Contains(name, search) && !strings.Contains(search, name) {
			continue
		}
		candidates = append(candidates, scored{
			id:     c.ID,
			name:   name,
			exact:  name == search,
			prefix: strings.HasPrefix(name, search),
			dist:   levenshtein.ComputeDistance(name, search),
		})
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.exact != b.exact {
			return a.exact
		}
		if a.prefix != b.prefix {
			return a.prefix
		}
		if len(a.name) != len(b.name) {
			return len(a.name) > len(b.name)
		}
		return a.dist < b.dist
	})
	return candidates[0].id
}

var separatorReplacer = strings.NewReplacer(".", " ", ",", " ", "-", " ")

// scanContentForClient is the fallback when no explicit client label exists:
// scan the whole content for any known client name, longest first, with
// separators normalized to whitespace on both sides.
func scanContentForClient(content string, clients []model.Client) string {
	text := normalizeSeparators(content)

	refs := make([]namedRef, len(clients))
	for i, c := range clients {
		refs[i] = namedRef{id: c.ID, name: normalizeSeparators(c.Name)}
	}
	return matchByContainment(text, refs)
}

func normalizeSeparators(s string) string {
	return strings.Join(strings.Fields(separatorReplacer.Replace(s)), " ")
}
