package paya

import vk "github.com/vulkan-go/vulkan"

// ComputePipeline pairs a compute vk.Pipeline with the vk.PipelineLayout
// binding it to the bindless descriptor set and an optional push-constant
// range, per the reference PipelineInner/ComputePipeline split.
type ComputePipeline struct {
	device   vk.Device
	pipeline vk.Pipeline
	layout   vk.PipelineLayout
}

// newComputePipeline builds a single compute pipeline bound against
// bindlessSetLayout (set 0) with an optional push-constant range sized
// info.PushConstantBytes. The shader module is destroyed immediately after
// pipeline creation; only the pipeline and layout outlive this call.
func newComputePipeline(device vk.Device, bindlessSetLayout vk.DescriptorSetLayout, info ComputePipelineInfo) (*ComputePipeline, error) {
	module, err := createShaderModule(device, info.ShaderCode)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(device, module, nil)

	layout, err := createPipelineLayout(device, bindlessSetLayout, info.PushConstantBytes, vk.ShaderStageFlagBits(vk.ShaderStageComputeBit))
	if err != nil {
		return nil, err
	}

	entryPoint := safeString(info.EntryPoint)
	if info.EntryPoint == "" {
		entryPoint = safeString("main")
	}

	stage := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFlagBits(vk.ShaderStageComputeBit),
		Module: module,
		PName:  entryPoint,
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stage,
		Layout: layout,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateComputePipelines(device, nil, 1, []vk.ComputePipelineCreateInfo{createInfo}, nil, pipelines)
	if isError(ret) {
		vk.DestroyPipelineLayout(device, layout, nil)
		return nil, newVkError(KindUnsupported, ret, "CreateComputePipelines failed")
	}

	return &ComputePipeline{device: device, pipeline: pipelines[0], layout: layout}, nil
}

// Destroy destroys the pipeline, then its layout, mirroring the reference
// Drop ordering.
func (p *ComputePipeline) Destroy() {
	vk.DestroyPipeline(p.device, p.pipeline, nil)
	vk.DestroyPipelineLayout(p.device, p.layout, nil)
}

// RasterPipeline pairs a graphics vk.Pipeline and vk.PipelineLayout with the
// renderpass it was built compatible against. paya owns one single-subpass
// renderpass per RasterPipeline rather than reaching for dynamic rendering,
// since this binding doesn't carry a confirmed PipelineRenderingCreateInfo
// struct type; the attachment formats in RasterPipelineInfo still drive the
// renderpass's attachment descriptions, preserving the info's meaning.
type RasterPipeline struct {
	device     vk.Device
	pipeline   vk.Pipeline
	layout     vk.PipelineLayout
	renderPass vk.RenderPass
}

// newRasterPipeline builds a graphics pipeline and its single-subpass,
// compatible renderpass from info's attachment formats and rasterization
// state. A depth/stencil state is always attached; depth test and depth
// write are enabled only when info.HasDepthAttachment.
func newRasterPipeline(device vk.Device, bindlessSetLayout vk.DescriptorSetLayout, info RasterPipelineInfo) (*RasterPipeline, error) {
	vertModule, err := createShaderModule(device, info.VertexShaderCode)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(device, vertModule, nil)

	fragModule, err := createShaderModule(device, info.FragmentShaderCode)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(device, fragModule, nil)

	layout, err := createPipelineLayout(device, bindlessSetLayout, info.PushConstantBytes, vk.ShaderStageFlagBits(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit))
	if err != nil {
		return nil, err
	}

	renderPass, err := createCompatibleRenderPass(device, info)
	if err != nil {
		vk.DestroyPipelineLayout(device, layout, nil)
		return nil, err
	}

	entryPoint := safeString(info.EntryPoint)
	if info.EntryPoint == "" {
		entryPoint = safeString("main")
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageVertexBit),
			Module: vertModule,
			PName:  entryPoint,
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageFragmentBit),
			Module: fragModule,
			PName:  entryPoint,
		},
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexAttributeDescriptionCount: uint32(len(info.VertexAttributes)),
		PVertexAttributeDescriptions:    info.VertexAttributes,
	}
	if len(info.VertexAttributes) > 0 {
		stride := uint32(0)
		for _, attr := range info.VertexAttributes {
			attr.Deref()
			end := attr.Offset + formatSizeBytes(attr.Format)
			if end > stride {
				stride = end
			}
		}
		vertexInput.VertexBindingDescriptionCount = 1
		vertexInput.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    stride,
			InputRate: vk.VertexInputRateVertex,
		}}
	}

	topology := info.Topology
	if topology == 0 {
		topology = vk.PrimitiveTopologyTriangleList
	}
	primitiveRestart := vk.False
	if info.PrimitiveRestart {
		primitiveRestart = vk.True
	}
	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               topology,
		PrimitiveRestartEnable: primitiveRestart,
	}

	polygonMode := info.PolygonMode
	if polygonMode == 0 {
		polygonMode = vk.PolygonModeFill
	}
	lineWidth := info.LineWidth
	if lineWidth == 0 {
		lineWidth = 1.0
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: polygonMode,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceClockwise,
		LineWidth:   lineWidth,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	colorBlendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(info.ColorAttachmentFmts))
	for i := range colorBlendAttachments {
		colorBlendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
				vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
		}
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(colorBlendAttachments)),
		PAttachments:    colorBlendAttachments,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	if info.HasDepthAttachment {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PColorBlendState:    &colorBlend,
		PDepthStencilState:  &depthStencil,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(device, nil, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines)
	if isError(ret) {
		vk.DestroyRenderPass(device, renderPass, nil)
		vk.DestroyPipelineLayout(device, layout, nil)
		return nil, newVkError(KindUnsupported, ret, "CreateGraphicsPipelines failed")
	}

	return &RasterPipeline{device: device, pipeline: pipelines[0], layout: layout, renderPass: renderPass}, nil
}

// RenderPass exposes the pipeline's compatible renderpass so callers can
// build framebuffers against it.
func (p *RasterPipeline) RenderPass() vk.RenderPass { return p.renderPass }

// Destroy destroys the pipeline, its layout, and its renderpass.
func (p *RasterPipeline) Destroy() {
	vk.DestroyPipeline(p.device, p.pipeline, nil)
	vk.DestroyPipelineLayout(p.device, p.layout, nil)
	vk.DestroyRenderPass(p.device, p.renderPass, nil)
}

// createShaderModule wraps already-compiled SPIR-V words into a
// vk.ShaderModule. shaderprep only expands GLSL text; compiling it to
// SPIR-V happens outside paya.
func createShaderModule(device vk.Device, code []uint32) (vk.ShaderModule, error) {
	if len(code) == 0 {
		// A caller passing empty SPIR-V words is a programming error, not a
		// recoverable runtime condition — fatal per the ProgrammingFault
		// policy (spec §7), matching the teacher's orPanic idiom.
		orPanic(newFaultError(KindProgrammingFault, "empty shader code"))
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}, nil, &module)
	if isError(ret) {
		return vk.NullShaderModule, newVkError(KindUnsupported, ret, "CreateShaderModule failed")
	}
	return module, nil
}

// createPipelineLayout builds a one-descriptor-set layout (set 0 is always
// the bindless set) with an optional single push-constant range.
func createPipelineLayout(device vk.Device, bindlessSetLayout vk.DescriptorSetLayout, pushConstantBytes uint32, stages vk.ShaderStageFlagBits) (vk.PipelineLayout, error) {
	setLayouts := []vk.DescriptorSetLayout{bindlessSetLayout}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}

	if pushConstantBytes > 0 {
		ranges := []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(stages),
			Offset:     0,
			Size:       pushConstantBytes,
		}}
		createInfo.PushConstantRangeCount = 1
		createInfo.PPushConstantRanges = ranges
	}

	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(device, &createInfo, nil, &layout)
	if isError(ret) {
		return vk.NullPipelineLayout, newVkError(KindUnsupported, ret, "CreatePipelineLayout failed")
	}
	return layout, nil
}

// createCompatibleRenderPass builds the single-subpass renderpass a
// RasterPipeline needs to be created against, from info's attachment
// formats. Every color attachment is LOAD_OP_LOAD / STORE_OP_STORE so
// callers control clearing explicitly via command-buffer clear calls; the
// optional depth attachment is LOAD_OP_LOAD / STORE_OP_DONT_CARE.
func createCompatibleRenderPass(device vk.Device, info RasterPipelineInfo) (vk.RenderPass, error) {
	var attachments []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference

	for _, format := range info.ColorAttachmentFmts {
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(len(attachments)),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}

	if info.HasDepthAttachment {
		depthRef := vk.AttachmentReference{
			Attachment: uint32(len(attachments)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         info.DepthAttachmentFmt,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &depthRef
	}

	var renderPass vk.RenderPass
	ret := vk.CreateRenderPass(device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}, nil, &renderPass)
	if isError(ret) {
		return vk.NullRenderPass, newVkError(KindUnsupported, ret, "CreateRenderPass failed")
	}
	return renderPass, nil
}

// formatSizeBytes returns the byte size of the common vertex-attribute
// formats paya expects to see; it is not a general format-size table.
func formatSizeBytes(format vk.Format) uint32 {
	switch format {
	case vk.FormatR32Sfloat:
		return 4
	case vk.FormatR32g32Sfloat:
		return 8
	case vk.FormatR32g32b32Sfloat:
		return 12
	case vk.FormatR32g32b32a32Sfloat:
		return 16
	case vk.FormatR32Uint, vk.FormatR32Sint:
		return 4
	case vk.FormatR32g32Uint, vk.FormatR32g32Sint:
		return 8
	case vk.FormatR32g32b32Uint, vk.FormatR32g32b32Sint:
		return 12
	case vk.FormatR32g32b32a32Uint, vk.FormatR32g32b32a32Sint:
		return 16
	default:
		return 0
	}
}
