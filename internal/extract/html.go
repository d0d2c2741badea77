package extract

import "strings"

var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "br": true,
	"cite": true, "data": true, "dfn": true, "em": true, "i": true, "kbd": true,
	"mark": true, "q": true, "rp": true, "rt": true, "ruby": true, "s": true,
	"small": true, "span": true, "strong": true, "sub": true, "sup": true,
	"time": true, "u": true, "wbr": true, "font": true, "del": true, "ins": true,
	"img": true, "label": true,
}

var opaqueElements = map[string]bool{
	"script": true, "style": true, "pre": true, "code": true, "textarea": true,
	"svg": true, "math": true, "template": true, "samp": true, "var": true,
}

type htmlFrame struct {
	kind  string
	name  string
	depth int
}

// htmlStrategy keeps text nodes. Block-level elements split segments while
// inline elements such as <b> or <a> do not.
type htmlStrategy struct {
	backend Backend
}

func (s htmlStrategy) Extract(text string) ([]Segment, error) {
	nodes, err := s.backend.Nodes([]byte(text))
	if err != nil {
		return nil, err
	}

	b := newBuilder(text)
	var stack []htmlFrame
	opaque := 0

	closeTo := func(depth int) {
		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if f.kind != "element" {
				continue
			}
			if opaqueElements[f.name] {
				opaque--
			}
			if !inlineElements[f.name] {
				b.flush()
			}
		}
	}

	for _, n := range nodes {
		closeTo(n.Depth)
		switch n.Kind {
		case "element", "script_element", "style_element":
			stack = append(stack, htmlFrame{kind: "element", depth: n.Depth})
			if n.Kind != "element" {
				stack[len(stack)-1].name = strings.TrimSuffix(n.Kind, "_element")
				opaque++
			}
		case "tag_name":
			// element > start_tag > tag_name
			if k := len(stack); k >= 2 && isOpenTag(stack[k-1].kind) && stack[k-2].kind == "element" && stack[k-2].name == "" {
				name := strings.ToLower(text[n.Start:n.End])
				stack[k-2].name = name
				if opaqueElements[name] {
					opaque++
				}
				if !inlineElements[name] {
					b.flush()
				}
			}
		case "text":
			if opaque == 0 {
				b.add(n.Start, n.End)
			}
		default:
			stack = append(stack, htmlFrame{kind: n.Kind, depth: n.Depth})
		}
	}
	closeTo(0)
	return b.segments(), nil
}

func isOpenTag(kind string) bool {
	return kind == "start_tag" || kind == "self_closing_tag"
}
