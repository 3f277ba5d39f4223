package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestCleanText(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "  25 Free Spins  ", expected: "25 Free Spins"},
		{input: "Free\n\t Coins", expected: "Free Coins"},
		{input: "\u200bSpins\u0007", expected: "Spins"},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, CleanText(row.input), row.input)
	}
}

func TestNodeKinds(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<h2>Feb 6</h2><ol><li><a href="x">a <b>link</b></a></li></ol><p>text</p>`))
	require.NoError(t, err)

	var kinds []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch {
		case IsHeading(n):
			kinds = append(kinds, "heading")
		case IsList(n):
			kinds = append(kinds, "list")
		case n.Type == html.ElementNode && n.Data == "a":
			href, ok := Attr(n, "href")
			require.True(t, ok)
			require.Equal(t, "x", href)
			require.Equal(t, "a link", GetText(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	require.Equal(t, []string{"heading", "list"}, kinds)
}
