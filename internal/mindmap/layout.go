package mindmap

import "errors"

// ErrNoSurface is returned when layout is requested before the target
// surface has nonzero dimensions. Callers retry once the surface is
// measurable.
var ErrNoSurface = errors.New("surface has no dimensions yet")

const (
	levelGapX  = 220.0
	nodeGapY   = 48.0
	marginX    = 40.0
	marginY    = 40.0
	nodeHeight = 28.0
)

// Bounds is the content bounding box after layout.
type Bounds struct {
	Width  float64
	Height float64
}

// Layout positions the tree with a tidy left-to-right layout: depth
// fixes the x column, leaves stack top-down, and every parent is
// centered on its children. Positions are written into the nodes, so a
// relaid-out tree updates in place.
func Layout(root *Node) Bounds {
	if root == nil {
		return Bounds{}
	}

	nextY := marginY
	var place func(n *Node) float64
	place = func(n *Node) float64 {
		n.X = marginX + float64(n.Depth)*levelGapX

		if len(n.Children) == 0 {
			n.Y = nextY
			nextY += nodeGapY
			return n.Y
		}

		first, last := 0.0, 0.0
		for i, c := range n.Children {
			y := place(c)
			if i == 0 {
				first = y
			}
			last = y
		}
		n.Y = (first + last) / 2
		return n.Y
	}
	place(root)

	return bounds(root)
}

func bounds(root *Node) Bounds {
	var b Bounds
	var walk func(n *Node)
	walk = func(n *Node) {
		if x := n.X + levelGapX; x > b.Width {
			b.Width = x
		}
		if y := n.Y + nodeGapY; y > b.Height {
			b.Height = y
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	b.Width += marginX
	b.Height += marginY - nodeGapY + nodeHeight
	return b
}

// Surface is the rendering target the viewport maps content onto.
type Surface struct {
	Width  float64
	Height float64
}

const (
	// ZoomStep is the multiplicative factor of one zoom operation.
	ZoomStep = 1.25
	// MinZoom and MaxZoom clamp the scale.
	MinZoom = 0.2
	MaxZoom = 5.0
)

// Viewport tracks the zoom state of a rendered mindmap on one surface.
// A viewport is bound to its surface: when the surface changes (inline
// vs fullscreen), a new viewport is created rather than reused.
type Viewport struct {
	surface Surface
	tree    *Node
	content Bounds
	scale   float64
}

// NewViewport lays out the tree for a surface. The surface must be
// measurable; before that, ErrNoSurface tells the caller to retry.
func NewViewport(tree *Node, surface Surface) (*Viewport, error) {
	if surface.Width <= 0 || surface.Height <= 0 {
		return nil, ErrNoSurface
	}
	v := &Viewport{surface: surface, scale: 1.0}
	v.Update(tree)
	return v, nil
}

// Update swaps in a new (or modified) tree, re-laying it out in place.
// The zoom factor is preserved across updates.
func (v *Viewport) Update(tree *Node) {
	v.tree = tree
	v.content = Layout(tree)
}

// ZoomIn increases the scale one step, clamped to MaxZoom.
func (v *Viewport) ZoomIn() float64 {
	v.scale = min(v.scale*ZoomStep, MaxZoom)
	return v.scale
}

// ZoomOut decreases the scale one step, clamped to MinZoom.
func (v *Viewport) ZoomOut() float64 {
	v.scale = max(v.scale/ZoomStep, MinZoom)
	return v.scale
}

// Fit resets the scale to 1 and recomputes the content bounds.
func (v *Viewport) Fit() float64 {
	v.scale = 1.0
	v.content = Layout(v.tree)
	return v.scale
}

// Scale returns the current zoom factor.
func (v *Viewport) Scale() float64 {
	return v.scale
}

// Content returns the content bounding box.
func (v *Viewport) Content() Bounds {
	return v.content
}
