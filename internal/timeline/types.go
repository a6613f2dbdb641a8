// Package timeline assembles render-ready timeline items from raw events
// and builds the viewport the timeline page is allowed to see.
package timeline

import (
	"strings"

	"chronoview/internal/model"
)

// vendorPrefix is the class prefix the timeline page uses for item types
// ("vis-point", "vis-range", ...).
const vendorPrefix = "vis-"

// ValidateType maps an arbitrary type string onto the four item types.
// Empty or unknown input yields box.
func ValidateType(raw string) model.ItemType {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, vendorPrefix)

	switch model.ItemType(s) {
	case model.TypeBox, model.TypePoint, model.TypeRange, model.TypeBackground:
		return model.ItemType(s)
	default:
		return model.TypeBox
	}
}
