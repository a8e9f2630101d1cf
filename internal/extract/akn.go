package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ppiankov/lexharvest/internal/model"
)

var (
	// ErrEmptyTOC means the table of contents listed no articles
	ErrEmptyTOC = errors.New("no article entries found in table of contents")
	// ErrNoProvisions means articles were listed but none had usable text
	ErrNoProvisions = errors.New("no provisions extracted from machine-readable document")
)

var headingNumberRe = regexp.MustCompile(`(?i)\bArticle\s+([A-Za-z0-9-]+)`)

// tocNode is one entry of the portal's embedded table of contents
type tocNode struct {
	ID       string    `json:"id"`
	Num      string    `json:"num"`
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	Heading  string    `json:"heading"`
	Children []tocNode `json:"children"`
}

type tocArticle struct {
	id      string
	num     string
	title   string
	chapter string
}

// ParseAkn extracts article-level provisions from an AKN document page
func ParseAkn(pageHTML string) ([]model.Provision, error) {
	articles, err := tocArticles(pageHTML)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrEmptyTOC
	}

	blocks := articleBlocks(pageHTML)

	provisions := make([]model.Provision, 0, len(articles))
	for _, art := range articles {
		block, ok := blocks[art.id]
		if !ok {
			continue
		}

		heading, content := renderText(block, "h2")
		if len(content) < 3 {
			continue
		}
		heading = NormalizeWhitespace(strings.ReplaceAll(heading, "\n", " "))

		var section string
		switch m := headingNumberRe.FindStringSubmatch(heading); {
		case m != nil:
			section = NormalizeArticleNumber(m[1])
		case strings.TrimSpace(art.num) != "":
			section = NormalizeArticleNumber(art.num)
		default:
			section = ArticleNumberFromID(art.id)
		}

		title := art.title
		if title == "" {
			title = heading
		}
		if title == "" {
			title = "Article " + section
		}

		provisions = append(provisions, model.Provision{
			ProvisionRef: ProvisionRef(section, art.id),
			Chapter:      art.chapter,
			Section:      section,
			Title:        NormalizeWhitespace(title),
			Content:      content,
		})
	}

	if len(provisions) == 0 {
		return nil, ErrNoProvisions
	}
	return provisions, nil
}

// tocArticles reads script#akn_toc_json and flattens it depth-first. A
// missing or malformed script yields no articles.
func tocArticles(pageHTML string) ([]tocArticle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	raw := strings.TrimSpace(doc.Find("script#akn_toc_json").First().Text())
	if raw == "" {
		return nil, nil
	}

	var nodes []tocNode
	if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
		return nil, nil
	}

	var out []tocArticle
	seen := make(map[string]bool)

	var walk func(list []tocNode, chapter string)
	walk = func(list []tocNode, chapter string) {
		for _, node := range list {
			title := HTMLToLine(node.Title)
			next := chapter
			if node.Type == "chapter" && title != "" {
				next = title
			}

			if node.Type == "article" && node.ID != "" && !seen[node.ID] {
				seen[node.ID] = true
				out = append(out, tocArticle{id: node.ID, num: node.Num, title: title, chapter: next})
			}

			walk(node.Children, next)
		}
	}
	walk(nodes, "")

	return out, nil
}

// articleBlocks returns the raw markup of every akn-article section keyed by
// id, matching nested sections by depth. The first section with an id wins.
func articleBlocks(pageHTML string) map[string]string {
	type frame struct {
		id    string
		start int
	}

	blocks := make(map[string]string)
	z := html.NewTokenizer(strings.NewReader(pageHTML))
	var stack []frame
	offset := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return blocks
		}
		size := len(z.Raw())
		start := offset
		offset += size

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "section" {
				continue
			}
			id := ""
			if hasAttr {
				id = articleID(z)
			}
			stack = append(stack, frame{id: id, start: start})

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "section" || len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.id == "" {
				continue
			}
			if _, dup := blocks[top.id]; !dup {
				blocks[top.id] = pageHTML[top.start:offset]
			}
		}
	}
}

// articleID returns the id of the current section start tag when it carries
// the akn-article class
func articleID(z *html.Tokenizer) string {
	var id string
	isArticle := false
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "id":
			id = string(val)
		case "class":
			for _, c := range strings.Fields(string(val)) {
				if c == "akn-article" {
					isArticle = true
				}
			}
		}
		if !more {
			break
		}
	}
	if !isArticle {
		return ""
	}
	return id
}
