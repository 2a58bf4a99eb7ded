// Package surface renders the popup window via GTK4 and the
// wlr-layer-shell protocol.
package surface

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/wisp-notify/wisp/internal/config"
	"github.com/wisp-notify/wisp/internal/model"
)

// Options describes one popup surface.
type Options struct {
	Edge    model.Edge
	Message string
	Display *config.DisplayConfig
}

// Client creates popup surfaces on the default display.
type Client struct {
	logger *slog.Logger
}

// NewClient initializes GTK and returns a surface client. Fails when
// no display is reachable.
func NewClient(logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	gtk.Init()
	if !layershell.IsSupported() {
		return nil, fmt.Errorf("compositor does not support the layer-shell protocol")
	}
	if gdk.DisplayGetDefault() == nil {
		return nil, fmt.Errorf("no display available")
	}
	return &Client{logger: logger}, nil
}

// Popup is one mapped surface.
type Popup struct {
	window    *gtk.Window
	box       *gtk.Box
	label     *gtk.Label
	opts      Options
	width     int
	height    int
	logger    *slog.Logger
	dismissed bool
	destroyed bool
}

// Create builds and measures the popup widget tree without showing it.
func (c *Client) Create(opts Options) (*Popup, error) {
	if opts.Display == nil {
		return nil, fmt.Errorf("surface options carry no display config")
	}
	d := opts.Display

	p := &Popup{opts: opts, logger: c.logger}

	p.window = gtk.NewWindow()
	p.window.SetDecorated(false)
	p.window.SetResizable(false)
	p.window.AddCSSClass("wisp-popup")

	layershell.InitForWindow(p.window)
	layershell.SetLayer(p.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(p.window, 0)
	layershell.SetKeyboardMode(p.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(p.window, "wisp")

	p.box = gtk.NewBox(gtk.OrientationVertical, 0)
	p.box.AddCSSClass("wisp-body")

	p.label = gtk.NewLabel(opts.Message)
	p.label.SetWrap(true)
	p.label.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
	p.label.SetJustify(gtk.JustifyCenter)
	p.box.Append(p.label)
	p.window.SetChild(p.box)

	if err := applyStyle(d); err != nil {
		p.window.Destroy()
		return nil, err
	}

	// Click anywhere dismisses the popup.
	click := gtk.NewGestureClick()
	click.SetButton(0)
	click.ConnectReleased(func(nPress int, x, y float64) {
		p.dismissed = true
	})
	p.window.AddController(click)

	p.window.SetDefaultSize(d.Width, -1)

	_, natural, _, _ := p.box.Measure(gtk.OrientationVertical, d.Width)
	height := natural
	if min := d.Padding*2 + d.BorderSize*2 + 1; height < min {
		height = min
	}
	p.width = d.Width
	p.height = height

	return p, nil
}

// Size returns the measured popup size in logical pixels.
func (p *Popup) Size() (width, height int) {
	return p.width, p.height
}

// Show anchors the popup at its edge with the given stacking offset and
// maps it.
func (p *Popup) Show(offset int) error {
	p.anchor(offset)
	p.window.SetVisible(true)
	// Pump until the initial configure lands.
	p.Dispatch(20 * time.Millisecond)
	p.logger.Debug("surface mapped", "edge", p.opts.Edge, "offset", offset,
		"width", p.width, "height", p.height)
	return nil
}

// anchor sets the layer-shell anchors and margins for the popup's edge.
// The stacking offset lands on the top margin, or the bottom margin for
// bottom-anchored edges; the configured edge margin keeps the popup off
// the horizontal screen edge.
func (p *Popup) anchor(offset int) {
	edgeMargin := p.opts.Display.Edge

	for _, e := range []layershell.LayerShellEdge{
		layershell.LayerShellEdgeTop,
		layershell.LayerShellEdgeBottom,
		layershell.LayerShellEdgeLeft,
		layershell.LayerShellEdgeRight,
	} {
		layershell.SetAnchor(p.window, e, false)
		layershell.SetMargin(p.window, e, 0)
	}

	switch p.opts.Edge {
	case model.EdgeCenter:
		return
	case model.EdgeTopLeft:
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(p.window, layershell.LayerShellEdgeLeft, edgeMargin)
	case model.EdgeTopRight:
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeRight, true)
		layershell.SetMargin(p.window, layershell.LayerShellEdgeRight, edgeMargin)
	case model.EdgeBottomLeft:
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(p.window, layershell.LayerShellEdgeLeft, edgeMargin)
	case model.EdgeBottomRight:
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeRight, true)
		layershell.SetMargin(p.window, layershell.LayerShellEdgeRight, edgeMargin)
	case model.EdgeLeft:
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(p.window, layershell.LayerShellEdgeLeft, edgeMargin)
	case model.EdgeRight:
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeRight, true)
		layershell.SetMargin(p.window, layershell.LayerShellEdgeRight, edgeMargin)
	}

	if p.opts.Edge.BottomAnchored() {
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeBottom, true)
		layershell.SetMargin(p.window, layershell.LayerShellEdgeBottom, offset)
	} else {
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeTop, true)
		layershell.SetMargin(p.window, layershell.LayerShellEdgeTop, offset)
	}
}

// Dismissed reports whether the popup was clicked away.
func (p *Popup) Dismissed() bool {
	return p.dismissed
}

// Dispatch pumps pending UI events for at most d.
func (p *Popup) Dispatch(d time.Duration) {
	ctx := glib.MainContextDefault()
	deadline := time.Now().Add(d)
	for {
		for ctx.Pending() {
			ctx.Iteration(false)
		}
		if !time.Now().Before(deadline) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Destroy unmaps and releases the surface. Idempotent.
func (p *Popup) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.window.Destroy()
	// Flush the unmap before the process exits.
	ctx := glib.MainContextDefault()
	for ctx.Pending() {
		ctx.Iteration(false)
	}
}

// applyStyle installs a CSS provider rendering the configured colors,
// border and font.
func applyStyle(d *config.DisplayConfig) error {
	bg, bgA, err := d.Background.RGBA()
	if err != nil {
		return err
	}
	fg, fgA, err := d.Text.RGBA()
	if err != nil {
		return err
	}
	bd, bdA, err := d.Border.RGBA()
	if err != nil {
		return err
	}

	var css strings.Builder
	css.WriteString("window.wisp-popup { background: transparent; }\n")
	fmt.Fprintf(&css, ".wisp-body { background-color: %s; color: %s; border: %dpx solid %s; border-radius: %dpx; padding: %dpx; %s }\n",
		rgba(bg.R, bg.G, bg.B, bgA),
		rgba(fg.R, fg.G, fg.B, fgA),
		d.BorderSize,
		rgba(bd.R, bd.G, bd.B, bdA),
		d.BorderRadius,
		d.Padding,
		cssFont(d.Font),
	)

	provider := gtk.NewCSSProvider()
	provider.LoadFromData(css.String())
	gtk.StyleContextAddProviderForDisplay(gdk.DisplayGetDefault(), provider,
		gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	return nil
}

// rgba renders channel values in [0,1] as a CSS rgba() literal.
func rgba(r, g, b, a float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.3f)",
		int(r*255+0.5), int(g*255+0.5), int(b*255+0.5), a)
}

// cssFont translates a pango-style description like "Sans Bold 14"
// into CSS font properties. The trailing token is treated as the size
// when numeric.
func cssFont(font string) string {
	fields := strings.Fields(font)
	if len(fields) == 0 {
		return ""
	}
	size := 0
	if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
		size = n
		fields = fields[:len(fields)-1]
	}

	var out strings.Builder
	family := make([]string, 0, len(fields))
	for _, f := range fields {
		switch strings.ToLower(f) {
		case "bold":
			out.WriteString("font-weight: bold; ")
		case "italic":
			out.WriteString("font-style: italic; ")
		default:
			family = append(family, f)
		}
	}
	if len(family) > 0 {
		fmt.Fprintf(&out, "font-family: %q; ", strings.Join(family, " "))
	}
	if size > 0 {
		fmt.Fprintf(&out, "font-size: %dpt; ", size)
	}
	return strings.TrimSpace(out.String())
}
