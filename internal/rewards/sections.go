package rewards

import (
	"rewardfeed/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Section is a heading together with the list of reward links it governs.
type Section struct {
	Heading string
	// Date is empty when the heading carries no date.
	Date  string
	Links []Candidate
}

// Sections attributes reward anchors to the section governing them.
type Sections struct {
	ordered []*Section
	byNode  map[*html.Node]*Section
}

func (s Sections) Lookup(node *html.Node) (Section, bool) {
	section, ok := s.byNode[node]
	if !ok {
		return Section{}, false
	}
	return *section, true
}

// All returns the sections that govern at least one link, in document order.
func (s Sections) All() []Section {
	out := make([]Section, 0, len(s.ordered))
	for _, section := range s.ordered {
		if len(section.Links) > 0 {
			out = append(out, *section)
		}
	}
	return out
}

func walkHeadings(node *html.Node, fn func(*html.Node)) {
	if htmlutil.IsHeading(node) {
		fn(node)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		walkHeadings(child, fn)
	}
}

// governedList returns the first list following heading among its siblings,
// or nil if another heading comes first.
func governedList(heading *html.Node) *html.Node {
	for sibling := heading.NextSibling; sibling != nil; sibling = sibling.NextSibling {
		if sibling.Type != html.ElementNode {
			continue
		}
		if htmlutil.IsList(sibling) {
			return sibling
		}
		if htmlutil.IsHeading(sibling) {
			return nil
		}
	}
	return nil
}

// GroupSections walks the h1-h6 headings under sel in document order and
// attributes every reward anchor inside a heading's governed list to that
// heading. An anchor claimed by an earlier section keeps its first section.
func GroupSections(sel *goquery.Selection, locator Locator, headingDate func(text string) (string, bool)) Sections {
	sections := Sections{byNode: map[*html.Node]*Section{}}

	for _, root := range sel.Nodes {
		walkHeadings(root, func(heading *html.Node) {
			list := governedList(heading)
			if list == nil {
				return
			}

			section := &Section{Heading: htmlutil.CleanText(htmlutil.GetText(heading))}
			if date, ok := headingDate(section.Heading); ok {
				section.Date = date
			}
			for c := range locator.Locate(goquery.NewDocumentFromNode(list).Selection) {
				if _, claimed := sections.byNode[c.Node]; claimed {
					continue
				}
				sections.byNode[c.Node] = section
				section.Links = append(section.Links, c)
			}
			sections.ordered = append(sections.ordered, section)
		})
	}

	return sections
}
