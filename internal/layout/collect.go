package layout

import "github.com/dpotapov/tinybrowser/internal/paint"

// CollectDisplayList flattens a layout tree into a single paint order:
// a node's own display list (e.g. its background) precedes its children's,
// matching the z-order a painter walking the tree depth-first would produce.
func CollectDisplayList(obj *Object) paint.DisplayList {
	var out paint.DisplayList
	collectInto(obj, &out)
	return out
}

func collectInto(obj *Object, out *paint.DisplayList) {
	if obj == nil {
		return
	}
	*out = append(*out, obj.Display...)
	for _, c := range obj.Children {
		collectInto(c, out)
	}
}
