package extract

import (
	"fmt"
	"log"
	"net/url"
	"strconv"
)

// PageSize is the limit sent with every list request.
const PageSize = 100

// Paginator follows the cursor a list endpoint returns with each page.
//
// Pagination ends when a page carries no cursor, when the has-more flag is
// false, or when a later page repeats the cursor it was requested with.
type Paginator struct {
	walker      Walker
	cursorPath  string
	hasMorePath string

	current  string
	pages    int
	finished bool
}

// NewPaginator validates the selectors and returns a paginator positioned
// before the first page.
func NewPaginator(w Walker, cursorPath, hasMorePath string) (*Paginator, error) {
	for _, path := range []string{cursorPath, hasMorePath} {
		if path == "" {
			continue
		}
		if _, err := w.First(nil, path); err != nil {
			return nil, err
		}
	}
	return &Paginator{walker: w, cursorPath: cursorPath, hasMorePath: hasMorePath}, nil
}

// Params returns the query parameters of the next request.
func (p *Paginator) Params() url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(PageSize))
	if p.current != "" {
		params.Set("cursor", p.current)
	}
	return params
}

// Finished reports whether no further page should be requested.
func (p *Paginator) Finished() bool {
	return p.finished
}

// Pages returns the number of pages consumed so far.
func (p *Paginator) Pages() int {
	return p.pages
}

// Cursor returns the cursor the next request will carry.
func (p *Paginator) Cursor() string {
	return p.current
}

// Advance consumes a decoded response body.
func (p *Paginator) Advance(body any) {
	p.pages++

	if p.cursorPath == "" {
		p.finished = true
		return
	}

	if p.hasMorePath != "" {
		v, _ := p.walker.First(body, p.hasMorePath)
		if more, ok := v.(bool); ok && !more {
			p.finished = true
			return
		}
	}

	v, _ := p.walker.First(body, p.cursorPath)
	next := cursorString(v)
	switch {
	case next == "":
		p.finished = true
	case next == p.current && p.pages > 1:
		log.Printf("Paginator: cursor %q repeated after %d pages, stopping", next, p.pages)
		p.finished = true
	default:
		p.current = next
	}
}

func cursorString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
