package fixed

import (
	"errors"
	"testing"

	"hugefile/pkg/contract"
)

// 10 行、批宽 3：4 批，尺寸 3,3,3,1
func TestPlanTenByThree(t *testing.T) {
	p, err := New(10, 3)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Count() != 4 {
		t.Fatalf("expect 4 batches, got %d", p.Count())
	}
	want := []contract.Batch{
		{Index: 0, From: 0, To: 2},
		{Index: 1, From: 3, To: 5},
		{Index: 2, From: 6, To: 8},
		{Index: 3, From: 9, To: 9},
	}
	for i, w := range want {
		if got := p.At(int64(i)); got != w {
			t.Fatalf("batch %d: got %+v want %+v", i, got, w)
		}
	}
}

// 批次首尾相接且覆盖 [0,N)
func TestPlanCoverage(t *testing.T) {
	for _, n := range []int64{0, 1, 2, 7, 9, 100} {
		for _, size := range []int{1, 2, 3, 10, 1000} {
			p, err := New(n, size)
			if err != nil {
				t.Fatalf("new(%d,%d): %v", n, size, err)
			}
			var next contract.Index
			for i := int64(0); i < p.Count(); i++ {
				b := p.At(i)
				if b.From != next || b.Size() <= 0 || b.Size() > size {
					t.Fatalf("n=%d size=%d batch %+v not contiguous", n, size, b)
				}
				if i < p.Count()-1 && b.Size() != size {
					t.Fatalf("n=%d size=%d non-final batch narrower: %+v", n, size, b)
				}
				next = b.To + 1
			}
			if int64(next) != n {
				t.Fatalf("n=%d size=%d coverage ends at %d", n, size, next)
			}
		}
	}
}

// TestPlanBadArgs 非法参数
func TestPlanBadArgs(t *testing.T) {
	if _, err := New(10, 0); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect invalid input for size 0, got %v", err)
	}
	if _, err := New(-1, 3); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect invalid input for n<0, got %v", err)
	}
}

// TestPlanAtOutOfRange 越界 panic
func TestPlanAtOutOfRange(t *testing.T) {
	p, _ := New(5, 2)
	defer func() {
		if recover() == nil {
			t.Fatalf("expect panic")
		}
	}()
	_ = p.At(3)
}
