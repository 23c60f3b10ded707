package landmark

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Handle addresses a landmark in a Registry.
// Handles are stable for the lifetime of the registry and compare by value.
type Handle int

// None is the invalid handle.
const None Handle = -1

// Landmark is an immutable positional fact in the environment.
type Landmark struct {
	position *mat.VecDense
}

// New creates new Landmark at the given position and returns it.
func New(position mat.Vector) *Landmark {
	p := &mat.VecDense{}
	p.CloneFromVec(position)

	return &Landmark{
		position: p,
	}
}

// Position returns the landmark position.
func (l *Landmark) Position() mat.Vector {
	p := &mat.VecDense{}
	p.CloneFromVec(l.position)

	return p
}

// Dim returns the dimension of the landmark position.
func (l *Landmark) Dim() int {
	return l.position.Len()
}

// String implements the Stringer interface.
func (l *Landmark) String() string {
	return fmt.Sprintf("Landmark%v", mat.Formatted(l.position.T(), mat.Squeeze()))
}

// Registry is an ordered store of landmarks addressed by stable handles.
// Landmarks are registered once and shared read-only by observation models.
type Registry struct {
	landmarks []*Landmark
}

// NewRegistry creates new Registry holding the given landmarks and returns it.
func NewRegistry(landmarks ...*Landmark) *Registry {
	r := &Registry{
		landmarks: make([]*Landmark, 0, len(landmarks)),
	}
	r.landmarks = append(r.landmarks, landmarks...)

	return r
}

// Add registers l and returns its handle.
func (r *Registry) Add(l *Landmark) Handle {
	r.landmarks = append(r.landmarks, l)

	return Handle(len(r.landmarks) - 1)
}

// Get returns the landmark addressed by h.
// It returns error if h does not address a registered landmark.
func (r *Registry) Get(h Handle) (*Landmark, error) {
	if h < 0 || int(h) >= len(r.landmarks) {
		return nil, fmt.Errorf("invalid landmark handle: %d", h)
	}

	return r.landmarks[int(h)], nil
}

// Handles returns the handles of all registered landmarks in registration order.
func (r *Registry) Handles() []Handle {
	handles := make([]Handle, len(r.landmarks))
	for i := range r.landmarks {
		handles[i] = Handle(i)
	}

	return handles
}

// Len returns the number of registered landmarks.
func (r *Registry) Len() int {
	return len(r.landmarks)
}

// Positions returns a matrix whose i-th row is the position of the landmark
// with handle i. It returns nil if the registry is empty.
func (r *Registry) Positions() *mat.Dense {
	if len(r.landmarks) == 0 {
		return nil
	}

	dim := r.landmarks[0].Dim()
	pos := mat.NewDense(len(r.landmarks), dim, nil)
	for i, l := range r.landmarks {
		for j := 0; j < dim; j++ {
			pos.Set(i, j, l.position.AtVec(j))
		}
	}

	return pos
}
