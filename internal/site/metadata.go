package site

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Defaults substituted when the page omits the corresponding tag.
const (
	DefaultTitle       = "Web App"
	DefaultDescription = "Web application"
	DefaultThemeColor  = "#ffffff"
)

// Metadata is what the generated app inherits from the target page.
type Metadata struct {
	Title       string
	Description string
	IconURL     string
	ThemeColor  string
}

// Extract pulls title, description, theme color, and an icon hint out of
// raw HTML. Icon links are resolved against base. Malformed HTML is fine;
// the tokenizer recovers and missing values get defaults.
func Extract(raw []byte, base *url.URL) Metadata {
	meta := Metadata{}

	doc, err := html.Parse(bytes.NewReader(raw))
	if err == nil {
		walk(doc, &meta)
	}

	if meta.Title == "" {
		meta.Title = DefaultTitle
	}
	if meta.Description == "" {
		meta.Description = DefaultDescription
	}
	if meta.ThemeColor == "" {
		meta.ThemeColor = DefaultThemeColor
	}
	if meta.IconURL != "" && base != nil {
		if ref, err := url.Parse(meta.IconURL); err == nil {
			meta.IconURL = base.ResolveReference(ref).String()
		}
	}
	return meta
}

func walk(n *html.Node, meta *Metadata) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if meta.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				meta.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "meta":
			name := strings.ToLower(attr(n, "name"))
			content := strings.TrimSpace(attr(n, "content"))
			if content != "" {
				switch name {
				case "description":
					if meta.Description == "" {
						meta.Description = content
					}
				case "theme-color":
					if meta.ThemeColor == "" {
						meta.ThemeColor = content
					}
				}
			}
		case "link":
			rel := strings.ToLower(attr(n, "rel"))
			href := strings.TrimSpace(attr(n, "href"))
			if href != "" && meta.IconURL == "" {
				switch rel {
				case "icon", "shortcut icon", "apple-touch-icon":
					meta.IconURL = href
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, meta)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
