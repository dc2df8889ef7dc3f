package mindmap

import (
	"fmt"
	"strings"
)

// ExportScale doubles the raster resolution of exported images.
const ExportScale = 2

// SVG renders the laid-out tree as a standalone SVG document. The
// background rectangle is explicit because SVG has no implicit one,
// and the width/height attributes carry the 2x raster scale so
// conversion to a bitmap comes out at double density.
func SVG(root *Node) string {
	if root == nil {
		return ""
	}
	b := Layout(root)

	var sb strings.Builder
	fmt.Fprintf(&sb,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		b.Width*ExportScale, b.Height*ExportScale, b.Width, b.Height)
	fmt.Fprintf(&sb, `<rect width="%.0f" height="%.0f" fill="#FFFFFF"/>`+"\n", b.Width, b.Height)

	var edges func(n *Node)
	edges = func(n *Node) {
		for _, c := range n.Children {
			fmt.Fprintf(&sb,
				`<path d="M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f" stroke="#94A3B8" fill="none"/>`+"\n",
				n.X+levelGapX*0.7, n.Y+nodeHeight/2,
				n.X+levelGapX*0.85, n.Y+nodeHeight/2,
				c.X-levelGapX*0.15, c.Y+nodeHeight/2,
				c.X, c.Y+nodeHeight/2)
			edges(c)
		}
	}
	edges(root)

	var nodes func(n *Node)
	nodes = func(n *Node) {
		fmt.Fprintf(&sb,
			`<g><rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="6" fill="#F1F5F9" stroke="#CBD5E1"/>`,
			n.X, n.Y, levelGapX*0.7, nodeHeight)
		fmt.Fprintf(&sb,
			`<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="13" fill="#0F172A">%s</text></g>`+"\n",
			n.X+10, n.Y+nodeHeight/2+4, escape(n.Label))
		for _, c := range n.Children {
			nodes(c)
		}
	}
	nodes(root)

	sb.WriteString("</svg>\n")
	return sb.String()
}

func escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
