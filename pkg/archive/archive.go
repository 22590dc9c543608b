package archive

import (
	"context"
	"fmt"
)

// Archive exports src, encodes the bundle and stores it in sink.
func Archive(ctx context.Context, src Source, sink Sink) (string, *Bundle, error) {
	b, err := Export(ctx, src)
	if err != nil {
		return "", nil, err
	}
	data, err := b.Encode()
	if err != nil {
		return "", nil, fmt.Errorf("archive: encode bundle: %w", err)
	}
	ref, err := sink.Put(ctx, data)
	if err != nil {
		return "", nil, err
	}
	return ref, b, nil
}

// Restore fetches a bundle, checks its bytes against ref and verifies it.
func Restore(ctx context.Context, sink Sink, ref string) (*Bundle, error) {
	data, err := sink.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if got, _ := contentRef(data); got != ref {
		return nil, fmt.Errorf("archive: content hash mismatch for %s: got %s", ref, got)
	}
	b, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := VerifyBundle(b); err != nil {
		return nil, err
	}
	return b, nil
}
