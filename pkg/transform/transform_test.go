package transform

import (
	"math"
	"testing"

	"github.com/armteleop/cobotservo/pkg/pose"
)

func samplePose() pose.Pose {
	return pose.Pose{X: 1, Y: 2, Z: 3, RX: 4, RY: 5, RZ: 6}
}

func almostEqual(a, b pose.Pose) bool {
	const eps = 1e-9
	aa, bb := a.Array(), b.Array()
	for i := range aa {
		if math.Abs(aa[i]-bb[i]) > eps {
			return false
		}
	}
	return true
}

func TestIdentityIsNoOp(t *testing.T) {
	p := samplePose()
	got := Identity().Apply(p)
	if !almostEqual(p, got) {
		t.Errorf("Identity().Apply(%+v) = %+v", p, got)
	}
}

func TestRoundTrip(t *testing.T) {
	specs := []map[string]string{
		{},
		{"x": "-x", "y": "z", "z": "y", "xd": "-xd", "yd": "zd", "zd": "yd"},
		{"x": "y", "y": "z", "z": "x"},
		{"x": "-x", "y": "-y", "z": "-z"},
		{"xd": "zd", "yd": "xd", "zd": "yd"},
	}
	for _, spec := range specs {
		tr, err := New(spec)
		if err != nil {
			t.Fatalf("New(%v) error: %v", spec, err)
		}
		p := samplePose()
		round := tr.Inverse().Apply(tr.Apply(p))
		if !almostEqual(p, round) {
			t.Errorf("spec %v: round trip %+v -> %+v, want %+v", spec, p, round, p)
		}
	}
}

func TestDefaultAxisMap(t *testing.T) {
	tr, err := New(map[string]string{
		"x": "-x", "y": "z", "z": "y", "xd": "-xd", "yd": "zd", "zd": "yd",
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	got := tr.Apply(pose.Pose{X: 1, Y: 2, Z: 3, RX: 4, RY: 5, RZ: 6})
	want := pose.Pose{X: -1, Y: 3, Z: 2, RX: -4, RY: 6, RZ: 5}
	if !almostEqual(got, want) {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}

func TestRejectsCrossHalfMapping(t *testing.T) {
	_, err := New(map[string]string{"x": "xd"})
	if err == nil {
		t.Error("expected error for cross-half mapping x -> xd")
	}
}

func TestRejectsNonPermutation(t *testing.T) {
	_, err := New(map[string]string{"x": "x", "y": "x", "z": "z"})
	if err == nil {
		t.Error("expected error for non-permutation mapping")
	}
}
