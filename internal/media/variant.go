package media

import "fmt"

// VariantKind distinguishes the three families of derivatives.
type VariantKind int

const (
	KindPrimary    VariantKind = iota // Re-encode in the source's own format.
	KindNextGen                       // Full-size next-gen encode.
	KindResponsive                    // Width-bound encode for srcset.
)

func (k VariantKind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindNextGen:
		return "nextgen"
	case KindResponsive:
		return "responsive"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// VariantDescriptor describes one produced derivative. Descriptors never
// reference each other.
type VariantDescriptor struct {
	Kind   VariantKind
	Format Format

	// Width is the requested responsive width; nil for full-size variants.
	Width *int

	// Identifier is the storage key the derivative was written under.
	Identifier string
	Size       int64

	// PixelWidth and PixelHeight are the encoded dimensions.
	PixelWidth  int
	PixelHeight int
}
