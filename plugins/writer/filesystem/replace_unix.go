//go:build !windows

package filesystem

import "os"

// osReplace: POSIX 下同目录 rename 即原子替换。
func osReplace(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

// syncDir: 最佳努力 fsync 父目录，使 rename 的元数据落盘。
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
