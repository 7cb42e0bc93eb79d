package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/flock"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformedSnapshot is returned by DecodeSnapshot.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// BoidState is what observers see of an agent.
type BoidState[V geometry.Vector[V]] struct {
	Pos     V
	Vel     V
	Heading float64
}

// Snapshot is a copy of the world after a tick. It shares nothing with the
// actor and may be kept by the receiver.
type Snapshot[V geometry.Vector[V]] struct {
	Tick  uint64
	Boids []BoidState[V]
	Food  []flock.Food[V]
	// Expired lists the attractors removed since the previous snapshot
	Expired []uuid.UUID
	// Cells holds the leaf boxes of the tree, only when requested
	Cells        []geometry.Box[V]
	TickDuration time.Duration
}

func coords[V geometry.Vector[V]](dst []interface{}, v V) []interface{} {
	for i := 0; i < v.Dim(); i++ {
		dst = append(dst, v.Axis(i))
	}
	return dst
}

// EncodeSnapshot converts s to a protobuf Struct. Vectors become flat
// number lists: a boid is [pos..., vel..., heading] and a cell is
// [min..., max...].
func EncodeSnapshot[V geometry.Vector[V]](s *Snapshot[V]) (*structpb.Struct, error) {
	var zero V
	dim := zero.Dim()

	boids := make([]interface{}, len(s.Boids))
	for i, b := range s.Boids {
		row := make([]interface{}, 0, 2*dim+1)
		row = coords(row, b.Pos)
		row = coords(row, b.Vel)
		boids[i] = append(row, b.Heading)
	}
	food := make([]interface{}, len(s.Food))
	for i, f := range s.Food {
		food[i] = map[string]interface{}{
			"id":  f.ID.String(),
			"pos": coords(nil, f.Pos),
			"age": f.Age,
		}
	}
	expired := make([]interface{}, len(s.Expired))
	for i, id := range s.Expired {
		expired[i] = id.String()
	}
	cells := make([]interface{}, len(s.Cells))
	for i, c := range s.Cells {
		cells[i] = coords(coords(nil, c.Min), c.Max)
	}

	return structpb.NewStruct(map[string]interface{}{
		"tick":       float64(s.Tick),
		"dim":        dim,
		"boids":      boids,
		"food":       food,
		"expired":    expired,
		"cells":      cells,
		"tickMillis": float64(s.TickDuration.Microseconds()) / 1000,
	})
}

func numbers(v *structpb.Value, want int) ([]float64, error) {
	list := v.GetListValue()
	if list == nil || len(list.Values) != want {
		return nil, fmt.Errorf("%w: want a list of %d numbers", ErrMalformedSnapshot, want)
	}
	out := make([]float64, want)
	for i, x := range list.Values {
		n, ok := x.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is not a number", ErrMalformedSnapshot, i)
		}
		out[i] = n.NumberValue
	}
	return out, nil
}

func vec[V geometry.Vector[V]](xs []float64) V {
	var v V
	for i, x := range xs {
		v = v.WithAxis(i, x)
	}
	return v
}

// DecodeSnapshot is the inverse of EncodeSnapshot. The dimension recorded in
// st must match V.
func DecodeSnapshot[V geometry.Vector[V]](st *structpb.Struct) (*Snapshot[V], error) {
	var zero V
	dim := zero.Dim()
	f := st.GetFields()
	if got := int(f["dim"].GetNumberValue()); got != dim {
		return nil, fmt.Errorf("%w: dimension %d, want %d", ErrMalformedSnapshot, got, dim)
	}

	s := &Snapshot[V]{
		Tick:         uint64(f["tick"].GetNumberValue()),
		TickDuration: time.Duration(f["tickMillis"].GetNumberValue() * float64(time.Millisecond)),
	}
	for _, v := range f["boids"].GetListValue().GetValues() {
		xs, err := numbers(v, 2*dim+1)
		if err != nil {
			return nil, fmt.Errorf("boid: %w", err)
		}
		s.Boids = append(s.Boids, BoidState[V]{
			Pos:     vec[V](xs[:dim]),
			Vel:     vec[V](xs[dim : 2*dim]),
			Heading: xs[2*dim],
		})
	}
	for _, v := range f["food"].GetListValue().GetValues() {
		ff := v.GetStructValue().GetFields()
		id, err := uuid.Parse(ff["id"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: food id: %v", ErrMalformedSnapshot, err)
		}
		xs, err := numbers(ff["pos"], dim)
		if err != nil {
			return nil, fmt.Errorf("food: %w", err)
		}
		s.Food = append(s.Food, flock.Food[V]{ID: id, Pos: vec[V](xs), Age: int(ff["age"].GetNumberValue())})
	}
	for _, v := range f["expired"].GetListValue().GetValues() {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: expired id: %v", ErrMalformedSnapshot, err)
		}
		s.Expired = append(s.Expired, id)
	}
	for _, v := range f["cells"].GetListValue().GetValues() {
		xs, err := numbers(v, 2*dim)
		if err != nil {
			return nil, fmt.Errorf("cell: %w", err)
		}
		s.Cells = append(s.Cells, geometry.Box[V]{Min: vec[V](xs[:dim]), Max: vec[V](xs[dim:])})
	}
	return s, nil
}
