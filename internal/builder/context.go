package builder

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aymerick/raymond"
)

// Context is the data a template renders against.
type Context map[string]any

// Flags of the is map; every context starts with all of them false.
var isFlags = []string{"home", "item", "page", "sitemap", "robot", "imgdownloaded"}

// NewContext assembles a render context from the project fields, a zeroed
// is map and custom, then adds every metadata entry. Metadata strings that
// contain template syntax are rendered against the context built so far.
// Neither input is modified.
func (b *Builder) NewContext(custom, metadata map[string]any) (Context, error) {
	ctx := Context{}
	for k, v := range b.project.Fields() {
		ctx[k] = v
	}

	is := make(map[string]any, len(isFlags))
	for _, flag := range isFlags {
		is[flag] = false
	}
	for k, v := range custom {
		if k == "is" {
			if flags, ok := v.(map[string]any); ok {
				for flag, set := range flags {
					is[flag] = set
				}
				continue
			}
		}
		ctx[k] = v
	}
	ctx["is"] = is

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := metadata[k]
		if s, ok := v.(string); ok && strings.Contains(s, "{{") {
			out, err := b.engine.Render(s, map[string]any(ctx))
			if err != nil {
				return nil, fmt.Errorf("rendering metadata %q: %w", k, err)
			}
			v = out
		}
		ctx[k] = v
	}

	if slug, ok := ctx["slug"]; ok && raymond.IsTrue(slug) {
		ctx["slug"] = Slugify(raymond.Str(slug))
	}
	return ctx, nil
}

// Slug returns the normalized slug of the context, or "" when it has none.
func (c Context) Slug() string {
	s, _ := c["slug"].(string)
	return s
}

// IsFlags returns the is map of the context.
func (c Context) IsFlags() map[string]any {
	is, _ := c["is"].(map[string]any)
	return is
}

// With returns a shallow copy of c with extra entries added.
func (c Context) With(extra map[string]any) Context {
	out := make(Context, len(c)+len(extra))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

var slugSeparators = regexp.MustCompile(`[\s/:]+`)

// Slugify lowercases and trims s, collapsing whitespace, slashes and colons
// into single dashes.
func Slugify(s string) string {
	return slugSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}
