// Package perm 生成输出位置到源行号的均匀随机排列。
package perm

import (
	"fmt"
	"math/rand/v2"

	"hugefile/pkg/contract"
)

// NewRand 返回统计级 PCG 生成器。seed 为 0 时随机取种子；
// 非 0 时同一 seed 产生同一排列，便于复现。
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generate 以 Fisher–Yates 生成长度 n 的排列：P[i]=i，
// 然后对 i=0..n-2 取 j ∈ [i,n) 均匀随机并交换 P[i]、P[j]。
// rng 为 nil 时使用随机种子。
func Generate(n int64, rng *rand.Rand) (contract.Permutation, error) {
	if n < 0 {
		return nil, fmt.Errorf("permutation length %d: %w", n, contract.ErrInvalidInput)
	}
	if n > contract.MaxLines {
		return nil, fmt.Errorf("permutation length %d exceeds %d: %w", n, int64(contract.MaxLines), contract.ErrTooManyLines)
	}
	if rng == nil {
		rng = NewRand(0)
	}
	p := make(contract.Permutation, n)
	for i := range p {
		p[i] = uint32(i)
	}
	for i := int64(0); i < n-1; i++ {
		j := i + int64(rng.Uint64N(uint64(n-i)))
		p[i], p[j] = p[j], p[i]
	}
	return p, nil
}

// Validate 检查 p 是否为 [0,len(p)) 上的双射。
func Validate(p contract.Permutation) error {
	seen := make([]bool, len(p))
	for i, v := range p {
		if int(v) >= len(p) {
			return fmt.Errorf("slot %d maps to %d, out of range [0,%d): %w", i, v, len(p), contract.ErrDataConsistency)
		}
		if seen[v] {
			return fmt.Errorf("slot %d repeats source %d: %w", i, v, contract.ErrDataConsistency)
		}
		seen[v] = true
	}
	return nil
}
