package persistence

import (
	"context"
	"errors"

	"github.com/gowiki/gowiki/pkg/metrics"
)

type instrumented struct {
	backend string
	inner   Adapter
}

// Instrument counts every load and save by backend and outcome.
func Instrument(backend string, a Adapter) Adapter {
	return &instrumented{backend: backend, inner: a}
}

func (i *instrumented) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := i.inner.Load(ctx, name)
	i.observe("load", err)
	return b, err
}

func (i *instrumented) Save(ctx context.Context, name string, data []byte) error {
	err := i.inner.Save(ctx, name, data)
	i.observe("save", err)
	return err
}

func (i *instrumented) observe(op string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrRecordNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	metrics.PersistenceOps.WithLabelValues(i.backend, op, outcome).Inc()
}
