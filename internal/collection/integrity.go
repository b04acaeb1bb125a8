package collection

import (
	"fmt"
	"log"

	"github.com/irfansharif/scenery/internal/instance"
)

// Validate checks the registry and partition invariants:
//   - every id in a bucket is registered, and the bucket points at its slot;
//   - every registered id is in exactly one bucket, the one its flags call for;
//   - the registry index and the slot arena agree.
//
// A failure is a programming error in this package; Validate exists for
// development builds, tests and periodic checks by callers.
func (c *Collection) Validate() error {
	var errors []string

	seen := make(map[instance.ID]string)
	check := func(name string, b bucket) {
		for id, idx := range b {
			if prev, dup := seen[id]; dup {
				errors = append(errors, fmt.Sprintf("Instance %d in both %s and %s", id, prev, name))
			}
			seen[id] = name

			regIdx, ok := c.index[id]
			if !ok {
				errors = append(errors, fmt.Sprintf("Instance %d in %s but not registered", id, name))
				continue
			}
			if regIdx != idx {
				errors = append(errors, fmt.Sprintf("Instance %d in %s points at slot %d, registry says %d", id, name, idx, regIdx))
			}
		}
	}
	check(BucketNotTransparent.String(), c.notTransparent)
	check(BucketTransparent.String(), c.transparent)
	check(BucketSelected.String(), c.selected)
	for shader, group := range c.shaderGroups {
		check(fmt.Sprintf("shader %d", shader), group)
	}

	live := 0
	for idx, s := range c.slots {
		if s == nil {
			continue
		}
		live++
		id := s.inst.ID()
		if regIdx, ok := c.index[id]; !ok || regIdx != idx {
			errors = append(errors, fmt.Sprintf("Slot %d holds instance %d unknown to the registry index", idx, id))
			continue
		}
		if _, ok := seen[id]; !ok {
			errors = append(errors, fmt.Sprintf("Instance %d is registered but in no bucket", id))
			continue
		}
		if _, ok := c.target(s)[id]; !ok {
			b, shader := c.BucketOf(id)
			errors = append(errors, fmt.Sprintf("Instance %d misclassified: in %s (shader %d), selected=%t transparent=%t",
				id, b, shader, s.inst.IsSelected(), s.inst.IsTransparent()))
		}
	}
	if live != len(c.index) {
		errors = append(errors, fmt.Sprintf("Registry index has %d entries for %d live slots", len(c.index), live))
	}
	for id, idx := range c.index {
		if idx < 0 || idx >= len(c.slots) || c.slots[idx] == nil {
			errors = append(errors, fmt.Sprintf("Instance %d indexes empty slot %d", id, idx))
		}
	}

	if len(errors) > 0 {
		log.Printf("collection integrity check failed with %d errors:", len(errors))
		for _, err := range errors {
			log.Printf("  - %s", err)
		}
		return fmt.Errorf("collection integrity check failed with %d errors", len(errors))
	}
	return nil
}
