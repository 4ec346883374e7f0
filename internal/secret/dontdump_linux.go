package secret

import "golang.org/x/sys/unix"

// excludeFromCoreDump marks data MADV_DONTDUMP. Older kernels may reject
// the advice; the region stays locked either way.
func excludeFromCoreDump(data []byte) {
	_ = unix.Madvise(data, unix.MADV_DONTDUMP)
}
