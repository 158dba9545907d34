// Package reference resolves usdm:ref and usdm:tag markup embedded in USDM
// display text.
//
// Referenced attribute values may themselves contain markup, so resolution
// recurses with an explicit depth limit and a cycle guard. A bad reference
// never aborts resolution: the marker is replaced with a visible placeholder
// and the result reports how complete the resolution was.
package reference

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMaxDepth bounds nested reference resolution.
const DefaultMaxDepth = 8

// Placeholder substituted for markup that cannot be resolved.
const unresolvedPlaceholder = "<missing reference>"

// Outcome classifies how completely a text was resolved.
type Outcome int

const (
	// FullyResolved means every marker was replaced with referenced text.
	FullyResolved Outcome = iota
	// PartiallyResolved means some markers resolved and some did not.
	PartiallyResolved
	// Unresolvable means no marker could be resolved.
	Unresolvable
)

// String returns a short name for the outcome.
func (o Outcome) String() string {
	switch o {
	case PartiallyResolved:
		return "partial"
	case Unresolvable:
		return "unresolvable"
	default:
		return "resolved"
	}
}

// Result is the outcome of resolving one text.
type Result struct {
	Text     string
	Outcome  Outcome
	Warnings []string
}

// Store supplies the document lookups the resolver needs.
// usdm.Document satisfies this interface.
type Store interface {
	// Attribute returns the string form of an attribute of an identified instance.
	Attribute(id, attribute string) (string, bool)
	// TagText resolves a dictionary tag to its reference text.
	TagText(dictionaryID, tag string) (string, bool)
}

// Resolver replaces usdm:ref/usdm:tag markup with referenced values.
type Resolver struct {
	store    Store
	maxDepth int
}

// New creates a resolver over the given store.
// A maxDepth <= 0 falls back to DefaultMaxDepth.
func New(store Store, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{store: store, maxDepth: maxDepth}
}

var (
	markerRe = regexp.MustCompile(`<usdm:(ref|tag)\b[^>]*?/?>`)
	attrRe   = regexp.MustCompile(`(\w+)="([^"]*)"`)
)

// Resolve replaces every marker in text. The dictionaryID scopes usdm:tag
// lookups and may be empty when the owning instance has no dictionary.
func (r *Resolver) Resolve(text, dictionaryID string) Result {
	res := Result{}
	resolved, failed := 0, 0
	res.Text = r.resolve(text, dictionaryID, 0, make(map[string]bool), &res.Warnings, &resolved, &failed)

	switch {
	case failed == 0:
		res.Outcome = FullyResolved
	case resolved == 0:
		res.Outcome = Unresolvable
	default:
		res.Outcome = PartiallyResolved
	}
	return res
}

func (r *Resolver) resolve(text, dictionaryID string, depth int, seen map[string]bool, warnings *[]string, resolved, failed *int) string {
	if !markerRe.MatchString(text) {
		return text
	}
	if depth >= r.maxDepth {
		*failed++
		*warnings = append(*warnings, fmt.Sprintf("reference depth limit %d reached", r.maxDepth))
		return markerRe.ReplaceAllString(text, unresolvedPlaceholder)
	}

	return markerRe.ReplaceAllStringFunc(text, func(marker string) string {
		attrs := parseAttrs(marker)
		if strings.HasPrefix(marker, "<usdm:ref") {
			return r.resolveRef(attrs, dictionaryID, depth, seen, warnings, resolved, failed)
		}
		return r.resolveTag(attrs, dictionaryID, depth, seen, warnings, resolved, failed)
	})
}

func (r *Resolver) resolveRef(attrs map[string]string, dictionaryID string, depth int, seen map[string]bool, warnings *[]string, resolved, failed *int) string {
	id, attribute := attrs["id"], attrs["attribute"]
	key := id + "." + attribute
	if seen[key] {
		*failed++
		*warnings = append(*warnings, fmt.Sprintf("circular reference to %s", key))
		return unresolvedPlaceholder
	}

	value, ok := r.store.Attribute(id, attribute)
	if !ok {
		*failed++
		*warnings = append(*warnings, fmt.Sprintf("reference %s does not resolve", key))
		return unresolvedPlaceholder
	}

	seen[key] = true
	defer delete(seen, key)
	*resolved++
	return r.resolve(value, dictionaryID, depth+1, seen, warnings, resolved, failed)
}

func (r *Resolver) resolveTag(attrs map[string]string, dictionaryID string, depth int, seen map[string]bool, warnings *[]string, resolved, failed *int) string {
	name := attrs["name"]
	value, ok := r.store.TagText(dictionaryID, name)
	if !ok {
		*failed++
		*warnings = append(*warnings, fmt.Sprintf("dictionary tag %q does not resolve", name))
		return unresolvedPlaceholder
	}

	key := "tag:" + dictionaryID + ":" + name
	if seen[key] {
		*failed++
		*warnings = append(*warnings, fmt.Sprintf("circular dictionary tag %q", name))
		return unresolvedPlaceholder
	}
	seen[key] = true
	defer delete(seen, key)
	*resolved++
	return r.resolve(value, dictionaryID, depth+1, seen, warnings, resolved, failed)
}

func parseAttrs(marker string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(marker, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}
