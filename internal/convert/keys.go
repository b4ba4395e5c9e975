package convert

import (
	"sort"
	"strings"

	"github.com/samcharles93/ckptconv/internal/safetensors"
)

// LeRobotPrefix is prepended to every parameter name by LeRobot policy wrappers.
const LeRobotPrefix = "model."

// KeyRule maps a source tensor name to its destination name.
type KeyRule func(string) string

// StripPrefix returns a rule that removes prefix from names that start with it
// and leaves every other name unchanged.
func StripPrefix(prefix string) KeyRule {
	return func(key string) string {
		if strings.HasPrefix(key, prefix) {
			return key[len(prefix):]
		}
		return key
	}
}

// Rename records the mapping applied to one tensor.
type Rename struct {
	From string
	To   string
}

func (r Rename) Changed() bool { return r.From != r.To }

// Collision lists source names that map to the same destination name. Sources
// are sorted; the last one wins when collisions are allowed.
type Collision struct {
	To   string
	From []string
}

func (c Collision) String() string {
	return strings.Join(c.From, ", ") + " -> " + c.To
}

// KeyPlan is the outcome of applying a rule to a set of names.
type KeyPlan struct {
	Renames    []Rename
	Collisions []Collision
}

// Changed counts renames that alter the name.
func (p KeyPlan) Changed() int {
	n := 0
	for _, r := range p.Renames {
		if r.Changed() {
			n++
		}
	}
	return n
}

// PlanKeys applies rule to names in sorted order.
func PlanKeys(names []string, rule KeyRule) KeyPlan {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	plan := KeyPlan{Renames: make([]Rename, 0, len(sorted))}
	sources := make(map[string][]string, len(sorted))
	for _, name := range sorted {
		to := rule(name)
		plan.Renames = append(plan.Renames, Rename{From: name, To: to})
		sources[to] = append(sources[to], name)
	}
	for _, r := range plan.Renames {
		from := sources[r.To]
		if len(from) > 1 && from[len(from)-1] == r.From {
			plan.Collisions = append(plan.Collisions, Collision{To: r.To, From: from})
		}
	}
	sort.Slice(plan.Collisions, func(i, j int) bool { return plan.Collisions[i].To < plan.Collisions[j].To })
	return plan
}

// RenameTensors builds a new archive whose tensors are renamed through plan.
// Payloads are shared with src, not copied. On collisions the later source in
// sorted order overwrites the earlier one.
func RenameTensors(src *safetensors.Archive, plan KeyPlan) *safetensors.Archive {
	out := &safetensors.Archive{
		Metadata: src.Metadata,
		Tensors:  make(map[string]safetensors.Tensor, len(src.Tensors)),
	}
	for _, r := range plan.Renames {
		out.Tensors[r.To] = src.Tensors[r.From]
	}
	return out
}
