package utils

import "io"

// ReadAllAndClose reads at most limit bytes from rc, then drains the rest and
// closes it so the transport can reuse the connection. limit <= 0 reads everything.
func ReadAllAndClose(rc io.ReadCloser, limit int64) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, rc)
		_ = rc.Close()
	}()
	if limit <= 0 {
		return io.ReadAll(rc)
	}
	return io.ReadAll(io.LimitReader(rc, limit))
}
