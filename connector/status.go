package connector

// Status is the integer sentinel returned by every façade operation.
// Failures never cross the boundary as errors or panics; callers branch
// on the sentinel the same way the historical Python connector did.
type Status int

const (
	StatusSuccess Status = 0
	StatusError   Status = -1
)

// OK reports whether the operation succeeded.
func (s Status) OK() bool { return s == StatusSuccess }

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "error"
}
