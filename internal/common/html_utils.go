package common

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// RawText concatenates the text content of a node and its children without trimming.
func RawText(node *html.Node) string {
	var text strings.Builder

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(node)
	return text.String()
}

// ExtractText gets all text content from an HTML node and its children, trimmed
func ExtractText(node *html.Node) string {
	return strings.TrimSpace(RawText(node))
}

// FindNodesByTag finds all nodes with a specific tag name, in document order
func FindNodesByTag(root *html.Node, tagName string) []*html.Node {
	var nodes []*html.Node

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tagName {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(root)
	return nodes
}

// FindFirstByTag returns the first node with the tag name, or nil
func FindFirstByTag(root *html.Node, tagName string) *html.Node {
	if root.Type == html.ElementNode && root.Data == tagName {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := FindFirstByTag(c, tagName); n != nil {
			return n
		}
	}
	return nil
}

// StripWhitespace removes every whitespace rune, including ones embedded in the text.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
