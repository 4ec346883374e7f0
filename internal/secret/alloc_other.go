//go:build !unix

package secret

import "errors"

func allocate(int) ([]byte, func([]byte) error, error) {
	return nil, nil, errors.New("secret: locked memory not supported on this platform")
}
