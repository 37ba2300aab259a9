package service

import (
	"bytes"
	"encoding/json"
)

type entity interface {
	EntityID() string
}

// Changed returns every entity in current that has no baseline entry with the
// same id and a byte-identical serialized form. Entities present only in the
// baseline (deleted locally) are not emitted; deletion is an explicit
// operation. The result mirrors current's order.
func Changed[E entity](current, baseline []E) []E {
	base := make(map[string][]byte, len(baseline))
	for _, e := range baseline {
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		base[e.EntityID()] = raw
	}

	var changed []E
	for _, e := range current {
		raw, err := json.Marshal(e)
		if err != nil {
			changed = append(changed, e)
			continue
		}
		prev, ok := base[e.EntityID()]
		if !ok || !bytes.Equal(prev, raw) {
			changed = append(changed, e)
		}
	}

	return changed
}
