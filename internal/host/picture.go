// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

// FourCC is a four-character pixel format code.
type FourCC uint32

// MakeFourCC packs four bytes little-endian, the host's layout.
func MakeFourCC(a, b, c, d byte) FourCC {
	return FourCC(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// String returns the four characters.
func (f FourCC) String() string {
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// Common chromas.
var (
	ChromaI420 = MakeFourCC('I', '4', '2', '0')
	ChromaRGBA = MakeFourCC('R', 'G', 'B', 'A')
	ChromaRV32 = MakeFourCC('R', 'V', '3', '2')
)

// VideoFormat describes the frames a filter will receive.
type VideoFormat struct {
	Chroma FourCC
	Width  uint32
	Height uint32
}

// Plane is one image plane. Pixels is the full plane memory
// (Pitch × Lines bytes).
type Plane struct {
	Pixels       []byte
	Pitch        int32
	Lines        int32
	VisiblePitch int32
	VisibleLines int32
}

// Picture is a decoded frame. The bridge may modify plane bytes in place but
// must not retain them after the filter callback returns.
type Picture struct {
	Planes []Plane
}

// ChromaDescription is the host's description of a chroma.
type ChromaDescription struct {
	PlaneCount int
	PixelSize  int
	PixelBits  int
}

// ChromaDescriber looks up chroma descriptions. ok is false for chromas the
// host does not know.
type ChromaDescriber interface {
	DescribeChroma(chroma FourCC) (desc ChromaDescription, ok bool)
}
