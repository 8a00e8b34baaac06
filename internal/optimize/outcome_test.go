package optimize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/mediaopt/internal/media"
	"github.com/backmassage/mediaopt/internal/planner"
)

func TestSavingsPercent(t *testing.T) {
	tests := []struct {
		name      string
		original  int64
		optimized int64
		want      float64
	}{
		{"two thirds", 3, 1, 66.67},
		{"rounds half up", 8, 7, 12.5},
		{"no change", 500, 500, 0},
		{"grew", 1000, 1250, -25},
		{"large", 2_450_112, 1_003_771, 59.03},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Outcome{OriginalSize: tt.original, Primary: &media.VariantDescriptor{Size: tt.optimized}}
			got, ok := o.SavingsPercent()
			assert.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSavingsPercent_AbsentWithoutPrimary(t *testing.T) {
	o := &Outcome{OriginalSize: 1000, WebP: &media.VariantDescriptor{Size: 10}}
	_, ok := o.SavingsPercent()
	assert.False(t, ok)
	_, ok = o.OptimizedSize()
	assert.False(t, ok)
}

func TestFold(t *testing.T) {
	out := newOutcome("id", "chair.jpg", media.SourceMetadata{Width: 900, Size: 100})
	w300, w600 := 300, 600

	out.fold(result{job: planner.Job{Kind: media.KindPrimary, Format: media.FormatJPEG}, desc: &media.VariantDescriptor{Size: 40}})
	out.fold(result{job: planner.Job{Kind: media.KindNextGen, Format: media.FormatAVIF}, desc: &media.VariantDescriptor{Size: 20}})
	out.fold(result{job: planner.Job{Kind: media.KindNextGen, Format: media.FormatWebP}, err: errors.New("boom")})
	out.fold(result{job: planner.Job{Kind: media.KindResponsive, Format: media.FormatJPEG, Width: 300}, desc: &media.VariantDescriptor{Width: &w300}})
	out.fold(result{job: planner.Job{Kind: media.KindResponsive, Format: media.FormatJPEG, Width: 600}, desc: &media.VariantDescriptor{Width: &w600}})

	assert.Equal(t, int64(100), out.OriginalSize)
	assert.NotNil(t, out.Primary)
	assert.NotNil(t, out.AVIF)
	assert.Nil(t, out.WebP)
	assert.Equal(t, []int{300, 600}, responsiveWidths(out.Responsive[media.FormatJPEG]))
	assert.Len(t, out.Failures, 1)
	assert.Equal(t, "nextgen webp: boom", out.Failures[0].String())
	assert.Same(t, out.AVIF, out.SmallestNextGen())
	assert.Same(t, out.AVIF, out.NextGen(media.FormatAVIF))
	assert.Nil(t, out.NextGen(media.FormatJPEG))
}
