// Package common contains plain data types and math helpers shared across
// the engine. Nothing here is interface-wrapped; these are commonly used
// value types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
// The texture registry stages decoded pixels in this form; the renderer
// backend turns it into a device texture and view.
type TextureStagingData struct {
	// Pixels is the raw pixel data in RGBA format, 4 bytes per pixel.
	Pixels []byte
	// Width is the texture width in pixels.
	Width uint32
	// Height is the texture height in pixels.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler pending GPU
// creation. Zero-valued fields fall back to engine defaults when the
// sampler is created (see Coalesce).
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode
	// for texture coordinates outside [0, 1] in each dimension.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification
	// and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp bound the level of detail for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy is the maximum anisotropic filtering level.
	MaxAnisotropy uint16
}
