// Package verify 比较两个文件的行多重集合（与顺序无关）。
package verify

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"hugefile/pkg/contract"
)

// Fingerprint 为行多重集合的摘要：行数、各行 xxhash64 的和与异或。
// 两个摘要不同则多重集合一定不同；相同则以极高概率相同。
type Fingerprint struct {
	Lines int64
	Sum   uint64
	Xor   uint64
}

// Add 计入一行。
func (f *Fingerprint) Add(line string) {
	h := xxhash.Sum64String(line)
	f.Lines++
	f.Sum += h
	f.Xor ^= h
}

// Of 扫描 src 一遍并计算摘要。
func Of(ctx context.Context, src contract.LineSource) (Fingerprint, error) {
	sc, err := src.Open(ctx)
	if err != nil {
		return Fingerprint{}, err
	}
	defer sc.Close()
	var f Fingerprint
	for sc.Scan() {
		f.Add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return Fingerprint{}, err
	}
	return f, nil
}

// Compare 并发计算 a、b 的摘要；不一致时返回 ErrVerifyMismatch。
func Compare(ctx context.Context, a, b contract.LineSource) (Fingerprint, Fingerprint, error) {
	var fa, fb Fingerprint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fa, err = Of(gctx, a)
		return err
	})
	g.Go(func() error {
		var err error
		fb, err = Of(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return fa, fb, err
	}
	if fa != fb {
		return fa, fb, fmt.Errorf("%w: %d lines (sum %016x) vs %d lines (sum %016x)",
			contract.ErrVerifyMismatch, fa.Lines, fa.Sum, fb.Lines, fb.Sum)
	}
	return fa, fb, nil
}
