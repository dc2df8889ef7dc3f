// Package mindmap turns a markdown outline into a laid-out node tree
// and renders it as SVG.
package mindmap

import (
	"bufio"
	"regexp"
	"strings"
)

// Node is one labeled node of the mindmap tree.
type Node struct {
	Label    string
	Depth    int
	Children []*Node

	// Layout coordinates, filled by Layout.
	X, Y float64
}

var (
	headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	bulletRegex  = regexp.MustCompile(`^(\s*)[-*]\s+(.+)$`)
)

// Parse builds the node tree from a markdown outline: headings nest by
// level, list items nest below the current heading by indentation.
// A synthetic root is added when the outline has multiple top nodes.
func Parse(markdown string) *Node {
	var roots []*Node
	// Stack of the current heading chain, outermost first.
	var headings []*Node
	var headingLevels []int
	// Stack of open list items under the innermost heading.
	var bullets []*Node
	var bulletIndents []int

	attach := func(n *Node) {
		if len(headings) > 0 {
			parent := headings[len(headings)-1]
			n.Depth = parent.Depth + 1
			parent.Children = append(parent.Children, n)
			return
		}
		n.Depth = 0
		roots = append(roots, n)
	}

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if match := headingRegex.FindStringSubmatch(line); match != nil {
			level := len(match[1])
			node := &Node{Label: strings.TrimSpace(match[2])}

			for len(headings) > 0 && headingLevels[len(headings)-1] >= level {
				headings = headings[:len(headings)-1]
				headingLevels = headingLevels[:len(headingLevels)-1]
			}
			attach(node)
			headings = append(headings, node)
			headingLevels = append(headingLevels, level)
			bullets = nil
			bulletIndents = nil
			continue
		}

		if match := bulletRegex.FindStringSubmatch(line); match != nil {
			indent := len(match[1])
			node := &Node{Label: strings.TrimSpace(match[2])}

			for len(bullets) > 0 && bulletIndents[len(bullets)-1] >= indent {
				bullets = bullets[:len(bullets)-1]
				bulletIndents = bulletIndents[:len(bulletIndents)-1]
			}
			if len(bullets) > 0 {
				parent := bullets[len(bullets)-1]
				node.Depth = parent.Depth + 1
				parent.Children = append(parent.Children, node)
			} else {
				attach(node)
			}
			bullets = append(bullets, node)
			bulletIndents = append(bulletIndents, indent)
		}
	}

	switch len(roots) {
	case 0:
		return nil
	case 1:
		return roots[0]
	default:
		root := &Node{Label: "Mindmap"}
		for _, r := range roots {
			shiftDepth(r, 1)
			root.Children = append(root.Children, r)
		}
		return root
	}
}

func shiftDepth(n *Node, by int) {
	n.Depth += by
	for _, c := range n.Children {
		shiftDepth(c, by)
	}
}

// Count returns the number of nodes in the tree.
func Count(n *Node) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += Count(c)
	}
	return total
}
