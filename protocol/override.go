// File: protocol/override.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package protocol

import (
	"sort"

	"github.com/mrylov/fixlink/api"
)

// ApplyOverrides merges a caller's tag overrides into msg and returns it.
// A nil value deletes the tag; everything else is rendered to its wire
// string and set. Tags are applied in ascending numeric order so repeated
// runs produce identical messages.
func ApplyOverrides(msg api.Message, overrides api.Tags) api.Message {
	if len(overrides) == 0 {
		return msg
	}
	tags := make([]int, 0, len(overrides))
	for tag := range overrides {
		tags = append(tags, tag)
	}
	sort.Ints(tags)
	for _, tag := range tags {
		if v, ok := api.Render(overrides[tag]); ok {
			msg.Set(tag, v)
		} else {
			msg.Delete(tag)
		}
	}
	return msg
}
