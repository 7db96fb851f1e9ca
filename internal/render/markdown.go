package render

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

func newMarkdown(hardWraps bool) goldmark.Markdown {
	rendererOpts := []goldmark.Option{}
	if hardWraps {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithHardWraps()))
	}
	return goldmark.New(append(rendererOpts,
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(mdLinkTransformer{}, 100),
			),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)...)
}

// Markdown converts src to HTML. The output is sanitized unless the engine
// was created with Unsafe.
func (e *Engine) Markdown(src string) (string, error) {
	return e.convert(e.md, src)
}

func (e *Engine) convert(md goldmark.Markdown, src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	if e.sanitizer != nil {
		return string(e.sanitizer.SanitizeBytes(buf.Bytes())), nil
	}
	return buf.String(), nil
}

func newSanitizer(unsafe bool) *bluemonday.Policy {
	if unsafe {
		return nil
	}
	return bluemonday.UGCPolicy()
}

// mdLinkTransformer points links to sibling markdown pages at their
// rendered .html files.
type mdLinkTransformer struct{}

func (mdLinkTransformer) Transform(node *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		if dest := link.Destination; bytes.HasSuffix(dest, []byte(".md")) && !bytes.Contains(dest, []byte("://")) {
			link.Destination = []byte(string(dest[:len(dest)-len(".md")]) + ".html")
		}
		return ast.WalkContinue, nil
	})
}
