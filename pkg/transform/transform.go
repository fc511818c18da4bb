// Package transform implements the signed-permutation coordinate
// transform between the teleoperation source frame and the robot frame.
package transform

import (
	"fmt"
	"strings"

	"github.com/armteleop/cobotservo/pkg/pose"
)

var posAxes = [3]string{"x", "y", "z"}
var rotAxes = [3]string{"xd", "yd", "zd"}

// Transform is a permutation-with-sign over the six pose axes, split
// into two independent halves (positional, rotational). It is pure,
// stateless, and branch-free to apply.
type Transform struct {
	permute [6]int
	sign    [6]float64
}

// Identity returns the no-op transform.
func Identity() Transform {
	t, _ := New(map[string]string{})
	return t
}

// New builds a Transform from axis mapping strings of the form
// {"x": "-x", "y": "z", "z": "y", "xd": "-xd", "yd": "zd", "zd": "yd"}.
// Any axis omitted from spec defaults to itself (no permutation, positive
// sign). Each half (position, rotation) must independently be a signed
// permutation of its own three axes; cross-half mappings are rejected.
func New(spec map[string]string) (Transform, error) {
	mapping := map[string]string{
		"x": "x", "y": "y", "z": "z",
		"xd": "xd", "yd": "yd", "zd": "zd",
	}
	for k, v := range spec {
		if _, ok := mapping[k]; !ok {
			return Transform{}, fmt.Errorf("transform: unknown axis %q", k)
		}
		mapping[k] = v
	}

	var t Transform
	if err := buildHalf(mapping, posAxes, 0, &t); err != nil {
		return Transform{}, err
	}
	if err := buildHalf(mapping, rotAxes, 3, &t); err != nil {
		return Transform{}, err
	}
	return t, nil
}

func buildHalf(mapping map[string]string, axes [3]string, offset int, t *Transform) error {
	seen := map[string]bool{}
	for i, axis := range axes {
		raw := mapping[axis]
		sign := 1.0
		name := raw
		if strings.HasPrefix(name, "-") {
			sign = -1.0
			name = name[1:]
		}
		idx := -1
		for j, a := range axes {
			if a == name {
				idx = j
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("transform: %q=%q is not a signed permutation within {%s}", axis, raw, strings.Join(axes[:], ","))
		}
		if seen[name] {
			return fmt.Errorf("transform: axis %q targeted more than once within {%s}", name, strings.Join(axes[:], ","))
		}
		seen[name] = true
		t.permute[offset+i] = offset + idx
		t.sign[offset+i] = sign
	}
	return nil
}

// Apply computes out[i] = sign[i] * in[permute[i]] for all six axes.
func (t Transform) Apply(p pose.Pose) pose.Pose {
	in := p.Array()
	var out [6]float64
	for i := 0; i < 6; i++ {
		out[i] = t.sign[i] * in[t.permute[i]]
	}
	return pose.FromArray(out)
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	var inv Transform
	for i := 0; i < 6; i++ {
		inv.permute[t.permute[i]] = i
		inv.sign[t.permute[i]] = 1 / t.sign[i]
	}
	return inv
}
