package audit

import (
	"context"
	"errors"
)

type tee []Sink

// Tee fans each entry out to every sink in order. Nil sinks are skipped.
// All sinks are attempted; their errors are joined.
func Tee(sinks ...Sink) Sink {
	out := make(tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (t tee) Append(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range t {
		if err := s.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
