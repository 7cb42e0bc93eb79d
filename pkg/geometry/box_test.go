package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestNewBox(t *testing.T) {
	tests := []struct {
		name    string
		size    Vector2D
		wantErr bool
	}{
		{"Positive extents", Vector2D{10, 20}, false},
		{"Zero width", Vector2D{0, 20}, true},
		{"Negative height", Vector2D{10, -1}, true},
		{"NaN", Vector2D{math.NaN(), 1}, true},
		{"Inf", Vector2D{1, math.Inf(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBox(Vector2D{}, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBox(size=%v) error = %v; wantErr %v", tt.size, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBounds) {
				t.Errorf("error %v does not wrap ErrInvalidBounds", err)
			}
		})
	}
}

func TestBoxFromCenter(t *testing.T) {
	b, err := BoxFromCenter(Vector2D{5, 5}, Vector2D{10, 4})
	if err != nil {
		t.Fatalf("BoxFromCenter: %v", err)
	}
	if !b.Min.Eq(Vector2D{0, 3}) || !b.Max.Eq(Vector2D{10, 7}) {
		t.Errorf("BoxFromCenter = %v; want [(0, 3) (10, 7)]", b)
	}
	if !b.Center().Eq(Vector2D{5, 5}) {
		t.Errorf("Center = %v; want (5, 5)", b.Center())
	}
}

func TestBox_Contains(t *testing.T) {
	b := Box[Vector2D]{Min: Vector2D{0, 0}, Max: Vector2D{10, 10}}
	tests := []struct {
		p    Vector2D
		want bool
	}{
		{Vector2D{5, 5}, true},
		{Vector2D{0, 0}, true},
		{Vector2D{10, 10}, true},
		{Vector2D{10, 0}, true},
		{Vector2D{-0.001, 5}, false},
		{Vector2D{5, 10.001}, false},
	}
	for _, tt := range tests {
		if got := b.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v; want %v", tt.p, got, tt.want)
		}
	}
}

func TestBox_Intersects(t *testing.T) {
	b := Box[Vector2D]{Min: Vector2D{0, 0}, Max: Vector2D{10, 10}}
	tests := []struct {
		name string
		o    Box[Vector2D]
		want bool
	}{
		{"Overlap", Box[Vector2D]{Vector2D{5, 5}, Vector2D{15, 15}}, true},
		{"Inside", Box[Vector2D]{Vector2D{2, 2}, Vector2D{3, 3}}, true},
		{"Touching face", Box[Vector2D]{Vector2D{10, 0}, Vector2D{20, 10}}, true},
		{"Disjoint on X", Box[Vector2D]{Vector2D{11, 0}, Vector2D{20, 10}}, false},
		{"Disjoint on Y", Box[Vector2D]{Vector2D{0, -5}, Vector2D{10, -1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Intersects(tt.o); got != tt.want {
				t.Errorf("Intersects(%v) = %v; want %v", tt.o, got, tt.want)
			}
			if got := tt.o.Intersects(b); got != tt.want {
				t.Errorf("Intersects is not symmetric for %v", tt.o)
			}
		})
	}
}

func TestBox_IntersectsSphere(t *testing.T) {
	b := Box[Vector2D]{Min: Vector2D{0, 0}, Max: Vector2D{10, 10}}
	tests := []struct {
		name   string
		center Vector2D
		r      float64
		want   bool
	}{
		{"Center inside", Vector2D{5, 5}, 1, true},
		{"Reaches face", Vector2D{12, 5}, 2, true},
		{"Short of face", Vector2D{12, 5}, 1.9, false},
		// the corner is sqrt(2)*3 ≈ 4.24 away
		{"Near corner miss", Vector2D{13, 13}, 4.2, false},
		{"Near corner hit", Vector2D{13, 13}, 4.3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.IntersectsSphere(tt.center, tt.r); got != tt.want {
				t.Errorf("IntersectsSphere(%v, %v) = %v; want %v", tt.center, tt.r, got, tt.want)
			}
		})
	}
}

func TestBox_Children(t *testing.T) {
	t.Run("2D", func(t *testing.T) {
		b := Box[Vector2D]{Min: Vector2D{0, 0}, Max: Vector2D{8, 4}}
		if b.Fanout() != 4 {
			t.Fatalf("Fanout = %d; want 4", b.Fanout())
		}
		sum := 0.0
		for k := 0; k < b.Fanout(); k++ {
			sum += b.Child(k).Volume()
		}
		if !floatEquals(sum, b.Volume()) {
			t.Errorf("children area %v; want %v", sum, b.Volume())
		}
		want := Box[Vector2D]{Min: Vector2D{4, 0}, Max: Vector2D{8, 2}}
		if got := b.Child(1); got != want {
			t.Errorf("Child(1) = %v; want %v", got, want)
		}
	})

	t.Run("3D", func(t *testing.T) {
		b := Box[Vector3D]{Min: Vector3D{0, 0, 0}, Max: Vector3D{2, 2, 2}}
		if b.Fanout() != 8 {
			t.Fatalf("Fanout = %d; want 8", b.Fanout())
		}
		for k := 0; k < 8; k++ {
			if v := b.Child(k).Volume(); v != 1 {
				t.Errorf("Child(%d).Volume() = %v; want 1", k, v)
			}
		}
		if got := b.Child(7).Min; got != (Vector3D{1, 1, 1}) {
			t.Errorf("Child(7).Min = %v; want (1, 1, 1)", got)
		}
	})

	t.Run("ChildIndex owns the point", func(t *testing.T) {
		b := Box[Vector2D]{Min: Vector2D{0, 0}, Max: Vector2D{10, 10}}
		points := []Vector2D{{0, 0}, {5, 5}, {10, 10}, {5, 10}, {7, 1}, {1, 7}}
		for _, p := range points {
			k := b.ChildIndex(p)
			if !b.Child(k).Contains(p) {
				t.Errorf("ChildIndex(%v) = %d but child %v does not contain it", p, k, b.Child(k))
			}
		}
		// a point on the midline goes to the lower half
		if k := b.ChildIndex(Vector2D{5, 5}); k != 0 {
			t.Errorf("ChildIndex(5, 5) = %d; want 0", k)
		}
	})
}

func TestBox_Clamp(t *testing.T) {
	b := Box[Vector2D]{Min: Vector2D{0, 0}, Max: Vector2D{10, 10}}
	if got := b.Clamp(Vector2D{-3, 12}); got != (Vector2D{0, 10}) {
		t.Errorf("Clamp(-3, 12) = %v; want (0, 10)", got)
	}
}
