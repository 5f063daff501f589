//go:build linux

package watcher

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Magic numbers from statfs(2).
const (
	nfsSuperMagic   = 0x6969
	smbSuperMagic   = 0x517B
	cifsMagicNumber = 0xFF534D42
	smb2MagicNumber = 0xFE534D42
	fuseSuperMagic  = 0x65735546
)

func statFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch uint32(st.Type) {
	case nfsSuperMagic:
		return FSTypeNFS
	case smbSuperMagic, cifsMagicNumber, smb2MagicNumber:
		return FSTypeSMB
	case fuseSuperMagic:
		// sshfs mounts are FUSE; only /proc/mounts can tell them apart
		if isSSHFSMount(path) {
			return FSTypeSSHFS
		}
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}

// isSSHFSMount finds the longest mount point containing path in
// /proc/mounts and checks its filesystem type.
func isSSHFSMount(path string) bool {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return false
	}
	defer f.Close()

	best, bestType := "", ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mnt := fields[1]
		if !strings.HasPrefix(path, mnt) || len(mnt) <= len(best) {
			continue
		}
		if mnt != "/" && len(path) > len(mnt) && path[len(mnt)] != '/' {
			continue
		}
		best, bestType = mnt, fields[2]
	}
	return strings.HasSuffix(bestType, "sshfs")
}
