package errors

// Rejection is the boundary shape of a failed operation: a kind a caller can
// branch on plus a human-readable message that is never parsed.
type Rejection struct {
	Kind    Kind     `json:"kind" yaml:"kind"`
	Message string   `json:"message" yaml:"message"`
	Hints   []string `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// AsRejection converts err into a Rejection. A nil err yields nil.
func AsRejection(err error) *Rejection {
	if err == nil {
		return nil
	}
	return &Rejection{
		Kind:    KindOf(err),
		Message: err.Error(),
		Hints:   GetAllHints(err),
	}
}

func (r *Rejection) Error() string {
	return r.Kind.String() + ": " + r.Message
}
