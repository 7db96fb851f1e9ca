package render

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/gosimple/slug"
)

func (e *Engine) builtinHelpers() map[string]any {
	return map[string]any{
		"fakevar":  fakevar,
		"slugify":  slugify,
		"add":      add,
		"ifmod":    ifmod,
		"autop":    e.autopHelper,
		"markdown": e.markdownHelper,
		"include":  e.include,
		"related":  e.related,
		"latest":   e.latest,
	}
}

// fakevar prints a literal mustache tag, for templates that emit templates.
func fakevar(name any) string {
	return "{{" + raymond.Str(name) + "}}"
}

func slugify(v any) string {
	return slug.Make(raymond.Str(v))
}

// add sums two numbers. Non-numeric operands are concatenated.
func add(a, b any) any {
	x, okA := toFloat(a)
	y, okB := toFloat(b)
	if !okA || !okB {
		return raymond.Str(a) + raymond.Str(b)
	}
	if sum := x + y; sum == float64(int64(sum)) {
		return int64(sum)
	}
	return x + y
}

func ifmod(index, mod any, options *raymond.Options) string {
	i, okI := toInt(index)
	m, okM := toInt(mod)
	if okI && okM && m != 0 && i%m == 0 {
		return options.Fn()
	}
	return options.Inverse()
}

func (e *Engine) autopHelper(v any) raymond.SafeString {
	out, err := e.convert(e.autop, raymond.Str(v))
	if err != nil {
		panic(err)
	}
	return raymond.SafeString(out)
}

func (e *Engine) markdownHelper(v any) raymond.SafeString {
	out, err := e.Markdown(raymond.Str(v))
	if err != nil {
		panic(err)
	}
	return raymond.SafeString(out)
}

// include inserts a theme file without evaluating it. A missing file
// inserts nothing.
func (e *Engine) include(name any) raymond.SafeString {
	rel := filepath.FromSlash(raymond.Str(name))
	if !filepath.IsLocal(rel) {
		panic(fmt.Errorf("include %q: path escapes the theme", rel))
	}
	content, err := readOptional(filepath.Join(e.themeDir, rel))
	if err != nil {
		panic(fmt.Errorf("include %q: %w", rel, err))
	}
	return raymond.SafeString(content)
}

// related renders the block for a random sample of items. The sample size
// comes from the size hash argument and defaults to one.
func (e *Engine) related(items any, options *raymond.Options) raymond.SafeString {
	list := toList(items)
	size := clamp(hashInt(options, "size", 1), len(list))

	var b strings.Builder
	for _, i := range e.perm(len(list))[:size] {
		b.WriteString(options.FnWith(list[i]))
	}
	return raymond.SafeString(b.String())
}

// latest renders the block for recent items of the home collections. With
// multi (the default) it samples among the newest size items of every
// collection; otherwise it takes the first item of the most recently
// modified collections.
func (e *Engine) latest(collections any, options *raymond.Options) raymond.SafeString {
	list := toList(collections)
	size := clamp(hashInt(options, "size", 1), len(list))
	multi := true
	if v := options.HashProp("multi"); v != nil {
		multi = raymond.IsTrue(v)
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, _ := toInt(field(list[i], "lastmod"))
		b, _ := toInt(field(list[j], "lastmod"))
		return a < b
	})

	var picked []any
	if multi {
		var pool []any
		for _, c := range list {
			items := toList(field(c, "items"))
			for i := 0; i < size && i < len(items); i++ {
				pool = append(pool, items[len(items)-1-i])
			}
		}
		for _, i := range e.perm(len(pool))[:min(size, len(pool))] {
			picked = append(picked, pool[i])
		}
	} else {
		for i := len(list) - 1; i >= 0 && len(picked) < size; i-- {
			if items := toList(field(list[i], "items")); len(items) > 0 {
				picked = append(picked, items[0])
			}
		}
	}

	var b strings.Builder
	for _, item := range picked {
		b.WriteString(options.FnWith(item))
	}
	return raymond.SafeString(b.String())
}

// templateHelper turns a project helper template into a helper function
// called as {{name value key=val}}.
func (e *Engine) templateHelper(tpl string) func(any, *raymond.Options) raymond.SafeString {
	return func(value any, options *raymond.Options) raymond.SafeString {
		out, err := e.Render(tpl, map[string]any{
			"value": value,
			"hash":  options.Hash(),
			"this":  options.Ctx(),
		})
		if err != nil {
			panic(err)
		}
		return raymond.SafeString(out)
	}
}

func hashInt(options *raymond.Options, key string, def int) int {
	if n, ok := toInt(options.HashProp(key)); ok {
		return n
	}
	return def
}

func clamp(size, n int) int {
	if size < 1 {
		size = 1
	}
	if size > n {
		size = n
	}
	return size
}

func toList(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func field(v any, key string) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !val.IsValid() {
		return nil
	}
	return val.Interface()
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	return int(f), ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
