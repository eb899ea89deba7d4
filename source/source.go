// Package source loads generated scripts from files, standard input or URLs.
// HTML pages (an exported chat or a shared document) are reduced to the text
// of their code blocks.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var ErrNoScript = errors.New("no script text found")

// maxBody bounds what is read from a file or response.
const maxBody = 32 << 20

type Loader struct {
	Client *http.Client
	Stdin  io.Reader
}

func NewLoader() *Loader {
	return &Loader{Client: http.DefaultClient, Stdin: os.Stdin}
}

// Load reads location, which is "-" for standard input, an http(s) URL or a
// file path.
func (l *Loader) Load(ctx context.Context, location string) (string, error) {
	var content []byte
	var contentType string
	var err error

	switch {
	case location == "-":
		content, err = io.ReadAll(io.LimitReader(l.Stdin, maxBody))
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		content, contentType, err = l.fetch(ctx, location)
	default:
		content, err = readFile(location)
	}
	if err != nil {
		return "", err
	}

	text := string(content)
	if isHTML(contentType, content) {
		text, err = ExtractHTML(bytes.NewReader(content))
		if err != nil {
			return "", err
		}
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", location, ErrNoScript)
	}
	return text, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxBody))
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	request.Header.Add("Accept", "text/plain, text/html;q=0.9, */*;q=0.5")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %s", url, response.Status)
	}

	content, err := io.ReadAll(io.LimitReader(response.Body, maxBody))
	if err != nil {
		return nil, "", err
	}
	return content, response.Header.Get("Content-Type"), nil
}

func isHTML(contentType string, content []byte) bool {
	if contentType != "" {
		return strings.HasPrefix(strings.ToLower(contentType), "text/html")
	}
	return strings.HasPrefix(http.DetectContentType(content), "text/html")
}

// ExtractHTML returns the text of every <pre> block and of every <code>
// outside one, separated by blank lines. Pages without code blocks yield the
// text of their body.
func ExtractHTML(r io.Reader) (string, error) {
	document, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	var blocks []string
	document.Find("pre, code").Each(func(i int, block *goquery.Selection) {
		if goquery.NodeName(block) == "code" && block.ParentsFiltered("pre").Length() > 0 {
			return
		}
		for _, root := range block.Nodes {
			blocks = append(blocks, nodeText(root))
		}
	})

	if len(blocks) == 0 {
		for _, root := range document.Find("body").Nodes {
			blocks = append(blocks, nodeText(root))
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "h1": true, "h2": true, "h3": true, "pre": true,
}

// nodeText keeps line structure: editors often export code blocks with <br>
// or one <div> per line, and a lost newline would extend a -- comment over the
// next statement.
func nodeText(root *html.Node) string {
	var builder strings.Builder

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			builder.WriteString(node.Data)
		case html.ElementNode:
			if node.Data == "br" {
				builder.WriteString("\n")
				return
			}
			if node.Data == "script" || node.Data == "style" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && blockElements[node.Data] {
			builder.WriteString("\n")
		}
	}
	walk(root)

	return strings.TrimSpace(builder.String())
}
