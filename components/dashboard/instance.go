package dashboard

import (
	"github.com/google/uuid"
)

const (
	MinWidth  = 1
	MaxWidth  = 4
	MinHeight = 1
	MaxHeight = 3

	unsetWidth  = 4
	unsetHeight = 1
)

// NewInstance creates an instance of the catalog widget with a fresh identity,
// the catalog default footprint, the catalog name as title and a copy of the
// default props.
func NewInstance(meta WidgetMeta) WidgetInstance {
	fp := meta.DefaultFootprint
	if fp == (Footprint{}) {
		fp = DefaultFootprint(meta.Key)
	}
	fp = clampFootprint(fp)
	props := cloneProps(meta.DefaultProps)
	if props == nil {
		props = map[string]any{}
	}
	return WidgetInstance{
		ID:     uuid.NewString(),
		Key:    meta.Key,
		Title:  meta.Name,
		Props:  props,
		Layout: &fp,
	}
}

// Footprint returns the effective placement, filling unset dimensions.
func (w WidgetInstance) Footprint() Footprint {
	fp := Footprint{W: unsetWidth, H: unsetHeight}
	if w.Layout != nil {
		if w.Layout.W != 0 {
			fp.W = w.Layout.W
		}
		if w.Layout.H != 0 {
			fp.H = w.Layout.H
		}
	}
	return fp
}

// DisplayTitle returns the title override or the catalog name.
func (w WidgetInstance) DisplayTitle(catalog *Catalog) string {
	if w.Title != "" {
		return w.Title
	}
	if meta, err := catalog.Lookup(w.Key); err == nil {
		return meta.Name
	}
	return string(w.Key)
}

// Clone returns a deep copy safe to mutate.
func (w WidgetInstance) Clone() WidgetInstance {
	out := w
	out.Props = cloneProps(w.Props)
	if w.Layout != nil {
		fp := *w.Layout
		out.Layout = &fp
	}
	return out
}

// CloneInstances deep-copies a sequence.
func CloneInstances(in []WidgetInstance) []WidgetInstance {
	if in == nil {
		return nil
	}
	out := make([]WidgetInstance, len(in))
	for i, inst := range in {
		out[i] = inst.Clone()
	}
	return out
}

func clampFootprint(fp Footprint) Footprint {
	return Footprint{
		W: clamp(fp.W, MinWidth, MaxWidth),
		H: clamp(fp.H, MinHeight, MaxHeight),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ResizeDirection is a single-step resize request.
type ResizeDirection string

const (
	GrowWidth    ResizeDirection = "w+"
	ShrinkWidth  ResizeDirection = "w-"
	GrowHeight   ResizeDirection = "h+"
	ShrinkHeight ResizeDirection = "h-"
)

// Resized applies one resize step and clamps the result.
func (fp Footprint) Resized(dir ResizeDirection) Footprint {
	switch dir {
	case GrowWidth:
		fp.W++
	case ShrinkWidth:
		fp.W--
	case GrowHeight:
		fp.H++
	case ShrinkHeight:
		fp.H--
	}
	return clampFootprint(fp)
}
