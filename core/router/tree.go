package router

import "strings"

// Params holds the path parameters bound by :name segments. Values are
// the raw segment text, not further decoded.
type Params map[string]string

// node is one path segment in a method's tree. Literal children are kept
// apart from the single parameter child so lookups can try exact segments
// first.
type node struct {
	children   map[string]*node
	paramChild *node
	paramName  string
	handler    Handler
	pattern    string
}

type tree struct {
	root *node
}

func newTree() *tree {
	return &tree{root: &node{}}
}

// add inserts a pattern of literal and :name segments. Duplicate patterns
// and malformed segments are programming errors and panic.
func (t *tree) add(pattern string, h Handler) {
	if pattern == "" || pattern[0] != '/' {
		panic("router: pattern must begin with '/': " + pattern)
	}

	n := t.root
	for _, seg := range splitPath(pattern) {
		switch seg[0] {
		case ':':
			name := seg[1:]
			if name == "" {
				panic("router: parameter segments must be named: " + pattern)
			}
			if n.paramChild == nil {
				n.paramChild = &node{paramName: name}
			} else if n.paramChild.paramName != name {
				panic("router: conflicting parameter names under " + pattern)
			}
			n = n.paramChild
		case '*':
			panic("router: catch-all segments are not supported: " + pattern)
		default:
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			c := n.children[seg]
			if c == nil {
				c = &node{}
				n.children[seg] = c
			}
			n = c
		}
	}

	if n.handler != nil {
		panic("router: duplicate registration for " + pattern)
	}
	n.handler = h
	n.pattern = pattern
}

// find matches a concrete path, binding parameter segments. An exact
// segment always wins over the parameter child at the same depth.
func (t *tree) find(path string) (Handler, Params) {
	n, params := t.root.match(splitPath(path))
	if n == nil {
		return nil, nil
	}
	return n.handler, params
}

func (n *node) match(segs []string) (*node, Params) {
	if len(segs) == 0 {
		if n.handler != nil {
			return n, nil
		}
		return nil, nil
	}

	seg := segs[0]
	if c := n.children[seg]; c != nil {
		if m, params := c.match(segs[1:]); m != nil {
			return m, params
		}
	}
	if n.paramChild != nil {
		if m, params := n.paramChild.match(segs[1:]); m != nil {
			if params == nil {
				params = make(Params)
			}
			params[n.paramChild.paramName] = seg
			return m, params
		}
	}
	return nil, nil
}

func splitPath(path string) []string {
	segs := make([]string, 0, 8)
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}
