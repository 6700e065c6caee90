package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/office"
)

// Pre-compiled fallback regexes for when HTML parsing fails outright.
var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
)

// docExtractor handles legacy .doc files by converting them to HTML with
// the office collaborator and converting that to markdown.
type docExtractor struct {
	office    *office.Converter
	converter *md.Converter
}

func newDocExtractor(conv *office.Converter) *docExtractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &docExtractor{office: conv, converter: converter}
}

func (e *docExtractor) Format() models.Format { return models.FormatDoc }

func (e *docExtractor) FirstPageText(ctx context.Context, path string) (string, error) {
	return "", fmt.Errorf("doc file must be converted to docx before first-page extraction: %s", path)
}

func (e *docExtractor) Markdown(ctx context.Context, path string) (string, error) {
	if e.office == nil {
		return "", fmt.Errorf("doc extraction requires a located soffice binary")
	}

	tmpDir, err := os.MkdirTemp("", "doc-extract-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	htmlPath, err := e.office.Convert(ctx, path, "html", tmpDir)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(htmlPath)
	if err != nil {
		return "", fmt.Errorf("failed to read converted HTML: %w", err)
	}

	markdown, err := e.converter.ConvertString(pruneHTML(content))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return markdown, nil
}

// pruneHTML strips non-content elements and returns the body. Falls back to
// regex cleanup when the document does not parse.
func pruneHTML(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return basicHTMLCleanup(string(content))
	}

	removeElements(doc, []string{
		"script", "style", "noscript", "iframe", "object", "embed", "form",
		"nav", "header", "footer",
	})

	if body := findElement(doc, "body"); body != nil {
		return renderNode(body)
	}
	return renderNode(doc)
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	var result *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

// removeElements removes all elements with the given tag names.
func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool)
	for _, tag := range tags {
		tagSet[tag] = true
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && tagSet[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// renderNode renders a node and its children back to an HTML string.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// basicHTMLCleanup strips script and style blocks when parsing fails.
func basicHTMLCleanup(content string) string {
	content = scriptRe.ReplaceAllString(content, "")
	content = styleRe.ReplaceAllString(content, "")
	return content
}
