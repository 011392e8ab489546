package names

import "strings"

// Resolver collects candidate names per identifier from sources of falling
// priority. The first non-placeholder offer for an identifier wins, so
// sources must be offered from highest to lowest priority.
type Resolver struct {
	resolved map[string]string
}

func NewResolver() *Resolver {
	return &Resolver{resolved: make(map[string]string)}
}

// Offer proposes name for id. Placeholders and offers for already resolved
// identifiers are ignored. It reports whether the offer was taken.
func (r *Resolver) Offer(id, name string) bool {
	if id == "" || IsPlaceholder(name) {
		return false
	}
	if _, ok := r.resolved[id]; ok {
		return false
	}
	r.resolved[id] = strings.TrimSpace(name)
	return true
}

// Name returns the resolved name for id, or "" if none was accepted.
func (r *Resolver) Name(id string) string {
	return r.resolved[id]
}

// Pending returns the identifiers from ids that are still unresolved,
// de-duplicated and in input order.
func (r *Resolver) Pending(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var pending []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := r.resolved[id]; !ok {
			pending = append(pending, id)
		}
	}
	return pending
}

// NameOr returns the resolved name for id, falling back to cached when it is
// not a placeholder, and to fallback otherwise.
func (r *Resolver) NameOr(id, cached, fallback string) string {
	if name := r.Name(id); name != "" {
		return name
	}
	if !IsPlaceholder(cached) {
		return strings.TrimSpace(cached)
	}
	return fallback
}
