package gate

import "context"

// StaticSource answers every applicant the same way. Used for local runs and demos.
type StaticSource struct {
	Completed bool
}

func (s StaticSource) HasCompletedPayment(context.Context, string) (bool, error) {
	return s.Completed, nil
}
