package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/strata3d/strata/common"
)

// instanceStride is the byte size of one instance transform in the shared
// storage buffer (a column-major mat4x4<f32>).
const instanceStride = 64

// cameraUniformSize is the byte size of the camera uniform (one view-projection
// matrix).
const cameraUniformSize = 64

// meshBuffers holds the GPU resources of one uploaded mesh.
type meshBuffers struct {
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   uint32
}

// wgpuBackend is the WebGPU implementation of the RendererBackend interface.
type wgpuBackend struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTextureView      *wgpu.TextureView
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	// Shared pipeline layout: group 0 = camera uniform + instance transform
	// storage buffer, group 1 = material texture + sampler. Every pipeline
	// registered through this backend uses it.
	globalLayout   *wgpu.BindGroupLayout
	materialLayout *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout

	sampler *wgpu.Sampler

	cameraBuffer     *wgpu.Buffer
	instanceBuffer   *wgpu.Buffer
	instanceCapacity uint32
	globalBindGroup  *wgpu.BindGroup

	meshes    map[string]*meshBuffers
	materials map[string]*wgpu.BindGroup
	pipelines map[string]*wgpu.RenderPipeline

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	boundMesh    *meshBuffers
}

var _ RendererBackend = &wgpuBackend{}

func newWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount, initialCapacity uint32) RendererBackend {
	runtime.LockOSThread()
	b := &wgpuBackend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		meshes:      make(map[string]*meshBuffers),
		materials:   make(map[string]*wgpu.BindGroup),
		pipelines:   make(map[string]*wgpu.RenderPipeline),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	b.initSharedResources(initialCapacity)
	return b
}

// initSharedResources creates the bind group layouts, pipeline layout,
// default sampler, camera uniform buffer, and the initial instance transform
// buffer plus its bind group. Construction failures here are fatal: nothing
// can be rendered without them.
func (b *wgpuBackend) initSharedResources(initialCapacity uint32) {
	var err error

	b.globalLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Global Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cameraUniformSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	b.materialLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Material Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	b.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Shared Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.globalLayout, b.materialLayout},
	})
	if err != nil {
		panic(err)
	}

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Default Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}

	b.cameraBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Camera Uniform Buffer",
		Size:  cameraUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}

	if initialCapacity == 0 {
		initialCapacity = 1
	}
	if err := b.createInstanceBuffer(initialCapacity); err != nil {
		panic(err)
	}
}

// createInstanceBuffer replaces the instance transform storage buffer with
// one of the given capacity and recreates the global bind group against it.
func (b *wgpuBackend) createInstanceBuffer(capacity uint32) error {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Instance Transform Buffer",
		Size:  uint64(capacity) * instanceStride,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create instance buffer for %d instances: %w", capacity, err)
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Global Bind Group",
		Layout: b.globalLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  b.cameraBuffer,
				Size:    wgpu.WholeSize,
			},
			{
				Binding: 1,
				Buffer:  buf,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("failed to create global bind group: %w", err)
	}

	if b.globalBindGroup != nil {
		b.globalBindGroup.Release()
	}
	if b.instanceBuffer != nil {
		b.instanceBuffer.Release()
	}
	b.instanceBuffer = buf
	b.globalBindGroup = bindGroup
	b.instanceCapacity = capacity
	return nil
}

func (b *wgpuBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The render pass draws into the MSAA texture; the resolved result
		// lands in the swapchain view via ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	} else {
		b.msaaTextureView = nil
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				ResolveTarget: nil,               // set per-frame when MSAA is on
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuBackend) InitMeshBuffers(id string, vertexData, indexData []byte, indexCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	mb := &meshBuffers{indexCount: indexCount}

	vbuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: id + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create vertex buffer for mesh %q: %w", id, err)
	}
	b.queue.WriteBuffer(vbuf, 0, vertexData)
	mb.vertexBuffer = vbuf

	ibuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: id + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vbuf.Release()
		return fmt.Errorf("failed to create index buffer for mesh %q: %w", id, err)
	}
	b.queue.WriteBuffer(ibuf, 0, indexData)
	mb.indexBuffer = ibuf

	if old, exists := b.meshes[id]; exists {
		old.vertexBuffer.Release()
		old.indexBuffer.Release()
	}
	b.meshes[id] = mb
	return nil
}

func (b *wgpuBackend) HasMeshBuffers(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.meshes[id]
	return ok
}

func (b *wgpuBackend) InitMaterial(id string, data common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     id + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("failed to create texture for material %q: %w", id, err)
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("failed to create texture view for material %q: %w", id, err)
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  id + " Material Bind Group",
		Layout: b.materialLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding:     0,
				TextureView: view,
			},
			{
				Binding: 1,
				Sampler: b.sampler,
			},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return fmt.Errorf("failed to create material bind group for %q: %w", id, err)
	}

	b.materials[id] = bindGroup
	return nil
}

func (b *wgpuBackend) HasMaterial(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.materials[id]
	return ok
}

func (b *wgpuBackend) EnsureInstanceCapacity(instances uint32) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if instances <= b.instanceCapacity {
		return false, nil
	}

	// Grow by at least doubling to amortize repeated small increases.
	capacity := max(instances, b.instanceCapacity*2)
	if err := b.createInstanceBuffer(capacity); err != nil {
		return false, err
	}
	return true, nil
}

func (b *wgpuBackend) InstanceCapacity() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.instanceCapacity
}

func (b *wgpuBackend) WriteInstanceBuffer(firstInstance uint32, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(b.instanceBuffer, uint64(firstInstance)*instanceStride, data)
}

func (b *wgpuBackend) WriteCameraBuffer(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(b.cameraBuffer, 0, data)
}

func (b *wgpuBackend) RegisterRenderPipeline(key, source string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create shader module for pipeline %q: %w", key, err)
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key + " Render Pipeline",
		Layout: b.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 32, // position (12) + normal (12) + uv (8)
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create render pipeline %q: %w", key, err)
	}

	b.pipelines[key] = created
	return nil
}

func (b *wgpuBackend) HasPipeline(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pipelines[key]
	return ok
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If a previous frame's surface texture is still held, avoid acquiring
	// another one; wgpu-native rejects overlapping acquisitions.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)
	pass.SetBindGroup(0, b.globalBindGroup, nil)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.boundMesh = nil

	return nil
}

func (b *wgpuBackend) SetPipeline(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pipelines[key]
	if !ok {
		return fmt.Errorf("render pipeline %q not registered", key)
	}
	b.framePass.SetPipeline(p)
	return nil
}

func (b *wgpuBackend) SetMesh(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	mb, ok := b.meshes[id]
	if !ok {
		return fmt.Errorf("mesh %q has no GPU buffers", id)
	}
	b.framePass.SetVertexBuffer(0, mb.vertexBuffer, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(mb.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.boundMesh = mb
	return nil
}

func (b *wgpuBackend) SetMaterial(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bg, ok := b.materials[id]
	if !ok {
		return fmt.Errorf("material %q has no bind group", id)
	}
	b.framePass.SetBindGroup(1, bg, nil)
	return nil
}

func (b *wgpuBackend) DrawIndexed(instanceCount, firstInstance uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.boundMesh == nil {
		return
	}
	b.framePass.DrawIndexed(b.boundMesh.indexCount, instanceCount, 0, 0, firstInstance)
}

func (b *wgpuBackend) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
}

func (b *wgpuBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}
