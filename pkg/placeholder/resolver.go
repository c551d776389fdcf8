package placeholder

import (
	"context"
	"strings"
)

// Resolver substitutes the recognized tags of a template with live values.
type Resolver struct {
	table *Table
}

func NewResolver(table *Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve replaces every recognized tag present in template. Providers whose
// tag does not appear are not called, and text without tags comes back as is.
func (r *Resolver) Resolve(ctx context.Context, template string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	out := template
	for _, e := range r.table.entries {
		if !strings.Contains(out, e.tag) {
			continue
		}
		out = strings.ReplaceAll(out, e.tag, valueOf(ctx, e.provider))
	}
	return out
}

// Call exposes the provider table for facts bound to a named function.
func (r *Resolver) Call(ctx context.Context, name string) (string, bool) {
	return r.table.Call(ctx, name)
}
