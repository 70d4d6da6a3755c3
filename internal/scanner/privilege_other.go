//go:build !windows

package scanner

import "golang.org/x/sys/unix"

func isRoot() bool {
	return unix.Geteuid() == 0
}
