// Package itemize expands array item templates into addressable instances,
// one path segment at a time.
package itemize

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mohae/deepcopy"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrNegativeIndex is returned for an item index below zero.
var ErrNegativeIndex = errors.New("itemize: negative index")

// Itemize returns an independent copy of template addressed as
// "<parentPath>.<index>". Nested property and item ids are left as they are;
// they are expanded when that level is itemized or reparented in turn.
// template is never modified.
func Itemize(index int, template model.Field, parentPath string) (model.Field, error) {
	if index < 0 {
		return model.Field{}, fmt.Errorf("%w: %d under %q", ErrNegativeIndex, index, parentPath)
	}
	item := clone(template)
	item.ID = model.JoinID(parentPath, strconv.Itoa(index))
	return item, nil
}

// Items itemizes template n times, indexes 0 to n-1.
func Items(template model.Field, parentPath string, n int) []model.Field {
	if n <= 0 {
		return nil
	}
	out := make([]model.Field, n)
	for idx := range out {
		out[idx], _ = Itemize(idx, template, parentPath)
	}
	return out
}

// Reparent returns a copy of field whose direct properties and item template
// are re-addressed under field.ID. Deeper levels are untouched. Renderers call
// it when they descend into an itemized object.
func Reparent(field model.Field) model.Field {
	out := clone(field)
	if len(out.Properties) > 0 {
		props := make(model.FieldMap, len(out.Properties))
		for key, child := range out.Properties {
			child.ID = model.JoinID(out.ID, key)
			props[key] = child
		}
		out.Properties = props
	}
	if out.ArrayItem != nil {
		out.ArrayItem.ID = model.JoinID(out.ID, model.TemplateSegment)
	}
	return out
}

// Template returns the item template of an array field, or false when field
// is not a repeatable container.
func Template(field model.Field) (model.Field, bool) {
	if field.Type != model.FieldTypeArray || field.ArrayItem == nil {
		return model.Field{}, false
	}
	return *field.ArrayItem, true
}

func clone(field model.Field) model.Field {
	copied, ok := deepcopy.Copy(field).(model.Field)
	if !ok {
		return field
	}
	return copied
}
