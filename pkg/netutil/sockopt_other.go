//go:build !linux

package netutil

// IP_RECVERR solo existe en Linux.
func setRecvErr(fd int) error {
	return nil
}
