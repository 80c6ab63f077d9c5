//go:build !gl

package parallel

import "fmt"

func newGLSurface(int) (Surface, error) {
	return nil, fmt.Errorf("%w: built without the gl tag", ErrSurfaceUnavailable)
}
