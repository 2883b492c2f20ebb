package extract

import (
	"fmt"
	"sync"

	"github.com/ohler55/ojg/jp"
)

// JsonWalker implements Walker for JSON decoded by ojg.
// Parsed selectors are cached; streams reuse the same few paths on every page.
type JsonWalker struct {
	mu    sync.Mutex
	exprs map[string]jp.Expr
}

func NewJsonWalker() *JsonWalker {
	return &JsonWalker{exprs: make(map[string]jp.Expr)}
}

func (w *JsonWalker) compile(selector string) (jp.Expr, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if x, ok := w.exprs[selector]; ok {
		return x, nil
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	w.exprs[selector] = x
	return x, nil
}

// Query implements Walker.
func (w *JsonWalker) Query(root any, selector string) ([]Match, error) {
	x, err := w.compile(selector)
	if err != nil {
		return nil, err
	}

	results := x.Get(root)
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = &jsonMatch{value: r}
	}
	return matches, nil
}

// First implements Walker.
func (w *JsonWalker) First(root any, selector string) (any, error) {
	x, err := w.compile(selector)
	if err != nil {
		return nil, err
	}
	return x.First(root), nil
}

type jsonMatch struct {
	value any
}

// Context implements Match.
func (m *jsonMatch) Context() any {
	return m.value
}
