// Package noop provides an ObjectStorage that keeps nothing. It is used when
// source archiving is disabled.
package noop

import (
	"context"
	"fmt"
	"io"

	"epdparser/internal/domain"
	"epdparser/internal/port"
)

type storage struct{}

// New returns a storage that discards uploads.
func New() port.ObjectStorage { return storage{} }

func (storage) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	if _, err := io.Copy(io.Discard, input.Body); err != nil {
		return nil, fmt.Errorf("noop upload: %w", err)
	}
	return &port.UploadOutput{Location: "noop://" + input.Key}, nil
}

func (storage) Download(_ context.Context, _ string) ([]byte, error) {
	return nil, domain.ErrNotFound
}

func (storage) Delete(_ context.Context, _ string) error { return nil }
