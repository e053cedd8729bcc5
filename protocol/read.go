// File: protocol/read.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package protocol

import (
	"fmt"
	"io"

	"github.com/mrylov/fixlink/api"
)

// ReadFrame assembles exactly one complete frame from r under the
// parser's pull contract, reading only the bytes the frame needs. The
// first byte decides everything: a byte that cannot begin a frame is a
// framing error.
func ReadFrame(r io.Reader) ([]byte, error) {
	p := NewParser()
	need := 1
	for need > 0 {
		chunk := make([]byte, need)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, err
		}
		var err error
		need, err = p.Consume(chunk)
		if err != nil {
			return nil, err
		}
	}
	if !p.Complete() {
		return nil, fmt.Errorf("%w: stream does not begin a frame", api.ErrFraming)
	}
	return p.Bytes(), nil
}
