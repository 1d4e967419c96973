package domain

import (
	"path"
	"slices"
	"strconv"
	"strings"
)

const (
	RootID       = "trial-root"
	FeedbackID   = "feedback"
	PromptID     = "prompt"
	LineID       = "line"
	MarkerClass  = "relNode"
	VideoClass   = "event-segmentation-video"
	RespondedCSS = "responded"
)

type Attr struct {
	Name  string
	Value string
}

type StyleProp struct {
	Name  string
	Value string
}

// Element is a node of the trial display tree. Attributes and style
// properties keep insertion order so rendering is stable.
type Element struct {
	Tag      string
	ID       string
	Classes  []string
	Attrs    []Attr
	Style    []StyleProp
	Text     string
	Children []*Element
}

func NewElement(tag, id string) *Element {
	return &Element{Tag: tag, ID: id}
}

func (e *Element) Append(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Find walks the tree depth first.
func (e *Element) Find(id string) *Element {
	if e == nil {
		return nil
	}
	if e.ID == id {
		return e
	}
	for _, child := range e.Children {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

func (e *Element) HasClass(class string) bool {
	return slices.Contains(e.Classes, class)
}

func (e *Element) AddClass(class string) {
	if !e.HasClass(class) {
		e.Classes = append(e.Classes, class)
	}
}

func (e *Element) SetAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

func (e *Element) Attr(name string) (string, bool) {
	for _, attr := range e.Attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (e *Element) SetStyle(name, value string) {
	for i := range e.Style {
		if e.Style[i].Name == name {
			e.Style[i].Value = value
			return
		}
	}
	e.Style = append(e.Style, StyleProp{Name: name, Value: value})
}

func (e *Element) StyleValue(name string) (string, bool) {
	for _, prop := range e.Style {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return "", false
}

// StyleText renders the inline style attribute value.
func (e *Element) StyleText() string {
	parts := make([]string, 0, len(e.Style))
	for _, prop := range e.Style {
		parts = append(parts, prop.Name+": "+prop.Value)
	}
	return strings.Join(parts, "; ")
}

func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := &Element{
		Tag:     e.Tag,
		ID:      e.ID,
		Classes: slices.Clone(e.Classes),
		Attrs:   slices.Clone(e.Attrs),
		Style:   slices.Clone(e.Style),
		Text:    e.Text,
	}
	for _, child := range e.Children {
		out.Children = append(out.Children, child.Clone())
	}
	return out
}

// Walk visits e and its descendants in document order.
func (e *Element) Walk(fn func(*Element)) {
	if e == nil {
		return
	}
	fn(e)
	for _, child := range e.Children {
		child.Walk(fn)
	}
}

// BuildLayout turns the trial parameters into the display tree. buffers holds
// the preloaded source for each stimulus, "" when none was found. Warnings
// are returned for the caller to log; none of them stop the trial.
func BuildLayout(cfg TrialConfig, buffers []string) (*Element, []string) {
	var warnings []string
	root := NewElement("div", RootID)
	root.SetStyle("cursor", "none")

	for i, ref := range cfg.Stimulus {
		video := NewElement("video", VideoElementID(i))
		video.AddClass(VideoClass)
		if i == 0 {
			video.SetStyle("position", "relative")
		} else {
			video.SetStyle("position", "absolute")
			video.SetStyle("top", "0")
			video.SetStyle("left", "0")
		}
		if cfg.Width > 0 {
			video.SetAttr("width", strconv.Itoa(cfg.Width))
		}
		if cfg.Height > 0 {
			video.SetAttr("height", strconv.Itoa(cfg.Height))
		}
		if cfg.Autoplay && cfg.Start == nil {
			video.SetAttr("autoplay", "autoplay")
		}
		if cfg.Controls {
			video.SetAttr("controls", "controls")
		}
		if cfg.Start != nil {
			video.SetStyle("visibility", "hidden")
		}

		buffer := ""
		if i < len(buffers) {
			buffer = buffers[i]
		}
		if buffer != "" {
			video.SetAttr("src", buffer)
		} else {
			clean := stripQuery(ref)
			ext := strings.ToLower(strings.TrimPrefix(path.Ext(clean), "."))
			if ext == "mov" {
				warnings = append(warnings, "the .mov container is not supported by every display; use .mp4 for "+ref)
			}
			source := NewElement("source", "")
			source.SetAttr("src", clean)
			source.SetAttr("type", "video/"+ext)
			video.Append(source)
		}
		root.Append(video)
	}

	root.Append(NewElement("div", FeedbackID))
	prompt := NewElement("div", PromptID)
	prompt.SetStyle("position", "relative")
	if cfg.Width > 0 {
		prompt.SetAttr("width", strconv.Itoa(cfg.Width))
	}
	prompt.SetAttr("height", "100")
	root.Append(prompt)
	return root, warnings
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

// LineElement draws a segment as a thin rotated bar.
func LineElement(id string, line Line) *Element {
	el := NewElement("div", id)
	el.SetStyle("position", "absolute")
	el.SetStyle("left", px(line.Origin.X))
	el.SetStyle("top", px(line.Origin.Y))
	el.SetStyle("width", px(line.Length))
	el.SetStyle("height", "5px")
	el.SetStyle("background-color", "rgba(0, 0, 0, 0.4)")
	el.SetStyle("transform", "rotate("+num(line.Angle)+"deg)")
	el.SetStyle("transform-origin", "0% 0%")
	el.SetStyle("z-index", "99")
	el.SetAttr("data-length", num(line.Length))
	el.SetAttr("data-angle", num(line.Angle))
	return el
}

// MarkerElement is the response tick placed on the baseline.
func MarkerElement(index int, x, rtMS float64) *Element {
	el := NewElement("div", MarkerElementID(index))
	el.AddClass(MarkerClass)
	el.Text = " |"
	el.SetAttr("data-x", num(x))
	el.SetAttr("data-rt", num(rtMS))
	el.SetStyle("position", "absolute")
	el.SetStyle("left", px(x))
	el.SetStyle("top", px(BaselineY))
	el.SetStyle("transform", "translate(-50%, -50%)")
	el.SetStyle("z-index", "100")
	return el
}

func px(v float64) string {
	return num(v) + "px"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// VideoFrame is the display state of one stimulus as seen by a monitor.
type VideoFrame struct {
	ID        string
	Source    string
	Visible   bool
	Responded bool
	Playing   bool
	Position  float64
	Duration  float64
}

// MarkerFrame is a response tick projected onto the baseline.
type MarkerFrame struct {
	ID string
	X  float64
	RT float64
}

// Frame is a flattened, read-only view of the display tree used by terminal
// hosts that cannot render markup.
type Frame struct {
	Videos        []VideoFrame
	BaselineWidth float64
	HasBaseline   bool
	Markers       []MarkerFrame
	Cleared       bool
}

func FrameFromLayout(root *Element) Frame {
	if root == nil {
		return Frame{Cleared: true}
	}
	var frame Frame
	root.Walk(func(el *Element) {
		switch {
		case el.Tag == "video":
			src, _ := el.Attr("src")
			if src == "" && len(el.Children) > 0 {
				src, _ = el.Children[0].Attr("src")
			}
			visibility, _ := el.StyleValue("visibility")
			frame.Videos = append(frame.Videos, VideoFrame{
				ID:        el.ID,
				Source:    src,
				Visible:   visibility != "hidden",
				Responded: el.HasClass(RespondedCSS),
			})
		case el.ID == LineID:
			raw, _ := el.Attr("data-length")
			frame.BaselineWidth, _ = strconv.ParseFloat(raw, 64)
			frame.HasBaseline = true
		case el.HasClass(MarkerClass):
			rawX, _ := el.Attr("data-x")
			rawRT, _ := el.Attr("data-rt")
			x, _ := strconv.ParseFloat(rawX, 64)
			rt, _ := strconv.ParseFloat(rawRT, 64)
			frame.Markers = append(frame.Markers, MarkerFrame{ID: el.ID, X: x, RT: rt})
		}
	})
	return frame
}
