package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeEpochBoundary(t *testing.T) {
	tests := []struct {
		name                  string
		last, epoch, retained uint64
		want                  EpochBoundary
		closed                bool
	}{
		{"incomplete trailing epoch", 23, 10, 1, EpochBoundary{Extra: 4, Upper: 19, Lower: 10}, true},
		{"ends on epoch boundary", 19, 10, 1, EpochBoundary{Extra: 0, Upper: 19, Lower: 10}, true},
		{"window larger than chain", 23, 10, 5, EpochBoundary{Extra: 4, Upper: 19, Lower: 0}, true},
		{"window equals chain", 19, 10, 2, EpochBoundary{Extra: 0, Upper: 19, Lower: 0}, true},
		{"first epoch closed", 9, 10, 1, EpochBoundary{Extra: 0, Upper: 9, Lower: 0}, true},
		{"no closed epoch", 5, 10, 1, EpochBoundary{Extra: 6}, false},
		{"genesis only", 0, 10, 1, EpochBoundary{Extra: 1}, false},
		{"epoch of one block", 7, 1, 3, EpochBoundary{Extra: 0, Upper: 7, Lower: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeEpochBoundary(tt.last, tt.epoch, tt.retained)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.closed, got.HasClosedEpoch(tt.last))
		})
	}
}

func TestComputeEpochBoundaryProperties(t *testing.T) {
	for epoch := uint64(1); epoch <= 12; epoch++ {
		for retained := uint64(1); retained <= 3; retained++ {
			for last := uint64(0); last <= 100; last++ {
				b := ComputeEpochBoundary(last, epoch, retained)

				assert.Less(t, b.Extra, epoch)
				if !b.HasClosedEpoch(last) {
					assert.Equal(t, last+1, b.Extra)
					continue
				}
				assert.Equal(t, last, b.Upper+b.Extra)
				assert.Zero(t, (b.Upper+1)%epoch, "upper closes an epoch")
				assert.LessOrEqual(t, b.Lower, b.Upper)
				assert.LessOrEqual(t, b.Upper-b.Lower+1, retained*epoch)
				if b.Lower > 0 {
					assert.Equal(t, retained*epoch, b.Upper-b.Lower+1)
				}
			}
		}
	}
}
