// Package vulkan implements gpu.Device on top of vulkan-go, presenting into a
// GLFW window surface.
package vulkan

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/multierr"

	"github.com/gekko3d/voxcast"
	"github.com/gekko3d/voxcast/voxelrt/rt/gpu"
)

const validationLayer = "VK_LAYER_KHRONOS_validation\x00"

var deviceExtensions = []string{vk.KhrSwapchainExtensionName + "\x00"}

type Options struct {
	AppName    string
	Validation bool
	// Images is the requested swapchain length. The surface may clamp it.
	Images int
}

// Backend owns the instance, surface, logical device, swapchain and command
// pool. Every other object is created through the gpu.Device methods.
type Backend struct {
	logger voxcast.Logger
	window *glfw.Window

	instance  vk.Instance
	surface   vk.Surface
	physical  vk.PhysicalDevice
	device    vk.Device
	queue     vk.Queue
	family    uint32
	swapchain vk.Swapchain
	pool      vk.CommandPool
	hasPool   bool

	memTypes  []gpu.MemoryType
	swap      gpu.SwapchainInfo
	swapOwned map[gpu.Image]bool

	buffers    *table[gpu.Buffer, vk.Buffer]
	memory     *table[gpu.Memory, vk.DeviceMemory]
	images     *table[gpu.Image, vk.Image]
	views      *table[gpu.ImageView, vk.ImageView]
	setLayouts *table[gpu.DescriptorSetLayout, vk.DescriptorSetLayout]
	descPools  *table[gpu.DescriptorPool, vk.DescriptorPool]
	sets       *table[gpu.DescriptorSet, vk.DescriptorSet]
	setPool    map[gpu.DescriptorSet]gpu.DescriptorPool
	pipelines  *table[gpu.Pipeline, vk.Pipeline]
	plLayouts  *table[gpu.PipelineLayout, vk.PipelineLayout]
	cmds       *table[gpu.CommandBuffer, vk.CommandBuffer]
	semaphores *table[gpu.Semaphore, vk.Semaphore]
	fences     *table[gpu.Fence, vk.Fence]
}

var _ gpu.Device = (*Backend)(nil)

// Open initializes Vulkan for the window: instance, surface, a physical device
// with one queue family that can both dispatch compute work and present, the
// logical device, a storage-capable swapchain with its views, and a command
// pool. The window must have been created with the NoAPI client hint.
func Open(window *glfw.Window, opts Options, logger voxcast.Logger) (b *Backend, err error) {
	if !glfw.VulkanSupported() {
		return nil, errors.New("vulkan: no Vulkan loader available")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vulkan: init: %w", err)
	}

	b = &Backend{
		logger:     voxcast.OrNop(logger),
		window:     window,
		swapOwned:  make(map[gpu.Image]bool),
		buffers:    newTable[gpu.Buffer, vk.Buffer](),
		memory:     newTable[gpu.Memory, vk.DeviceMemory](),
		images:     newTable[gpu.Image, vk.Image](),
		views:      newTable[gpu.ImageView, vk.ImageView](),
		setLayouts: newTable[gpu.DescriptorSetLayout, vk.DescriptorSetLayout](),
		descPools:  newTable[gpu.DescriptorPool, vk.DescriptorPool](),
		sets:       newTable[gpu.DescriptorSet, vk.DescriptorSet](),
		setPool:    make(map[gpu.DescriptorSet]gpu.DescriptorPool),
		pipelines:  newTable[gpu.Pipeline, vk.Pipeline](),
		plLayouts:  newTable[gpu.PipelineLayout, vk.PipelineLayout](),
		cmds:       newTable[gpu.CommandBuffer, vk.CommandBuffer](),
		semaphores: newTable[gpu.Semaphore, vk.Semaphore](),
		fences:     newTable[gpu.Fence, vk.Fence](),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, b.Close())
			b = nil
		}
	}()

	if err := b.createInstance(opts); err != nil {
		return b, fmt.Errorf("vulkan: create instance: %w", err)
	}
	if err := b.createSurface(); err != nil {
		return b, fmt.Errorf("vulkan: create surface: %w", err)
	}
	if err := b.pickPhysicalDevice(); err != nil {
		return b, fmt.Errorf("vulkan: pick physical device: %w", err)
	}
	if err := b.createLogicalDevice(opts); err != nil {
		return b, fmt.Errorf("vulkan: create logical device: %w", err)
	}
	if err := b.createSwapchain(opts.Images); err != nil {
		return b, fmt.Errorf("vulkan: create swapchain: %w", err)
	}
	if err := b.createCommandPool(); err != nil {
		return b, fmt.Errorf("vulkan: create command pool: %w", err)
	}
	return b, nil
}

func (b *Backend) createInstance(opts Options) error {
	name := opts.AppName
	if name == "" {
		name = "voxcast"
	}
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(name),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "voxcast\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}

	extensions := safeStrings(b.window.GetRequiredInstanceExtensions())
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if opts.Validation {
		if !validationAvailable() {
			b.logger.Warnf("validation requested but %s is not installed", strings.TrimSuffix(validationLayer, "\x00"))
		} else {
			createInfo.EnabledLayerCount = 1
			createInfo.PpEnabledLayerNames = []string{validationLayer}
		}
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return err
	}
	b.instance = instance
	return vk.InitInstance(instance)
}

func validationAvailable() bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, layers) != vk.Success {
		return false
	}
	for _, layer := range layers {
		layer.Deref()
		if vk.ToString(layer.LayerName[:])+"\x00" == validationLayer {
			return true
		}
	}
	return false
}

func (b *Backend) createSurface() error {
	ptr, err := b.window.CreateWindowSurface(b.instance, nil)
	if err != nil {
		return err
	}
	b.surface = vk.SurfaceFromPointer(ptr)
	return nil
}

// pickPhysicalDevice takes the first suitable discrete GPU, or the first
// suitable device of any kind when there is no discrete one.
func (b *Backend) pickPhysicalDevice() error {
	var count uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(b.instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return errors.New("no GPUs with Vulkan support")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vk.Error(vk.EnumeratePhysicalDevices(b.instance, &count, devices)); err != nil {
		return err
	}

	found := false
	for _, pd := range devices {
		family, ok := b.computePresentFamily(pd)
		if !ok || !hasDeviceExtensions(pd) {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		discrete := props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
		if found && !discrete {
			continue
		}
		b.physical, b.family, found = pd, family, true
		b.logger.Debugf("candidate GPU %q (discrete %v, family %d)", vk.ToString(props.DeviceName[:]), discrete, family)
		if discrete {
			break
		}
	}
	if !found {
		return errors.New("no GPU with a queue family supporting both compute and present")
	}

	var mem vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(b.physical, &mem)
	mem.Deref()
	b.memTypes = make([]gpu.MemoryType, mem.MemoryTypeCount)
	for i := range b.memTypes {
		t := mem.MemoryTypes[i]
		t.Deref()
		b.memTypes[i] = gpu.MemoryType{Properties: gpu.MemoryProperty(t.PropertyFlags), HeapIndex: t.HeapIndex}
	}
	return nil
}

func (b *Backend) computePresentFamily(pd vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)

	for i, family := range families {
		family.Deref()
		if family.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) == 0 {
			continue
		}
		var present vk.Bool32
		if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), b.surface, &present)); err != nil {
			b.logger.Warnf("querying surface support for queue family %d: %v", i, err)
			continue
		}
		if present.B() {
			return uint32(i), true
		}
	}
	return 0, false
}

func hasDeviceExtensions(pd vk.PhysicalDevice) bool {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil) != vk.Success {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, available) != vk.Success {
		return false
	}
	required := make(map[string]struct{}, len(deviceExtensions))
	for _, name := range deviceExtensions {
		required[name] = struct{}{}
	}
	for _, ext := range available {
		ext.Deref()
		delete(required, vk.ToString(ext.ExtensionName[:])+"\x00")
	}
	return len(required) == 0
}

func (b *Backend) createLogicalDevice(opts Options) error {
	createInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: b.family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: deviceExtensions,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}
	if opts.Validation && validationAvailable() {
		createInfo.EnabledLayerCount = 1
		createInfo.PpEnabledLayerNames = []string{validationLayer}
	}

	var device vk.Device
	if err := vk.Error(vk.CreateDevice(b.physical, &createInfo, nil, &device)); err != nil {
		return err
	}
	b.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(b.device, b.family, 0, &queue)
	b.queue = queue
	return nil
}

func (b *Backend) createSwapchain(images int) error {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(b.physical, b.surface, &caps)); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	if caps.SupportedUsageFlags&vk.ImageUsageFlags(vk.ImageUsageStorageBit) == 0 {
		return errors.New("surface images cannot be used as storage images")
	}

	format, err := b.chooseFormat()
	if err != nil {
		return err
	}
	extent := b.chooseExtent(caps)

	count := uint32(images)
	if count < caps.MinImageCount+1 {
		count = caps.MinImageCount + 1
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          b.surface,
		MinImageCount:    count,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageStorageBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
	}
	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(b.device, &createInfo, nil, &swapchain)); err != nil {
		return err
	}
	b.swapchain = swapchain

	var n uint32
	if err := vk.Error(vk.GetSwapchainImages(b.device, b.swapchain, &n, nil)); err != nil {
		return err
	}
	native := make([]vk.Image, n)
	if err := vk.Error(vk.GetSwapchainImages(b.device, b.swapchain, &n, native)); err != nil {
		return err
	}

	b.swap = gpu.SwapchainInfo{
		Extent: gpu.Extent2D{Width: extent.Width, Height: extent.Height},
		Format: fromVkFormat(format.Format),
	}
	desc := gpu.ImageDesc{Dimension: gpu.Image2D, Width: extent.Width, Height: extent.Height, Format: b.swap.Format}
	for _, img := range native {
		h := b.images.put(img)
		b.swapOwned[h] = true
		view, err := b.CreateImageView(h, desc)
		if err != nil {
			return err
		}
		b.swap.Images = append(b.swap.Images, h)
		b.swap.Views = append(b.swap.Views, view)
	}
	b.logger.Infof("swapchain: %d images %dx%d %v", n, extent.Width, extent.Height, format.Format)
	return nil
}

// chooseFormat prefers BGRA8 and falls back to RGBA8. sRGB formats are
// skipped because they do not support storage writes.
func (b *Backend) chooseFormat() (vk.SurfaceFormat, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(b.physical, b.surface, &count, nil)); err != nil {
		return vk.SurfaceFormat{}, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(b.physical, b.surface, &count, formats)); err != nil {
		return vk.SurfaceFormat{}, err
	}

	var fallback *vk.SurfaceFormat
	for i := range formats {
		formats[i].Deref()
		f := formats[i]
		if !b.storageCapable(f.Format) {
			continue
		}
		switch f.Format {
		case vk.FormatB8g8r8a8Unorm:
			return f, nil
		case vk.FormatR8g8b8a8Unorm:
			if fallback == nil {
				fallback = &formats[i]
			}
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return vk.SurfaceFormat{}, errors.New("no storage-capable UNORM surface format")
}

func (b *Backend) storageCapable(format vk.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(b.physical, format, &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureStorageImageBit) != 0
}

func (b *Backend) chooseExtent(caps vk.SurfaceCapabilities) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	w, h := b.window.GetFramebufferSize()
	return vk.Extent2D{
		Width:  clamp(uint32(w), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(uint32(h), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func (b *Backend) createCommandPool() error {
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: b.family,
	}
	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(b.device, &createInfo, nil, &pool)); err != nil {
		return err
	}
	b.pool, b.hasPool = pool, true
	return nil
}

// Close destroys what Open created. Objects made through the gpu.Device
// methods must already be released; leftovers are logged and destroyed with
// the device.
func (b *Backend) Close() error {
	var err error
	if b.device != nil {
		err = multierr.Append(err, vk.Error(vk.DeviceWaitIdle(b.device)))
		if leaked := b.buffers.len() + b.memory.len() + b.fences.len() + b.semaphores.len(); leaked > 0 {
			b.logger.Warnf("closing with %d live device objects", leaked)
		}
		for _, view := range b.swap.Views {
			b.DestroyImageView(view)
		}
		b.swap = gpu.SwapchainInfo{}
		if b.swapchain != vk.Swapchain(vk.NullHandle) {
			vk.DestroySwapchain(b.device, b.swapchain, nil)
			b.swapchain = vk.Swapchain(vk.NullHandle)
		}
		if b.hasPool {
			vk.DestroyCommandPool(b.device, b.pool, nil)
			b.hasPool = false
		}
		vk.DestroyDevice(b.device, nil)
		b.device = nil
	}
	if b.instance != nil {
		if b.surface != vk.Surface(vk.NullHandle) {
			vk.DestroySurface(b.instance, b.surface, nil)
			b.surface = vk.Surface(vk.NullHandle)
		}
		vk.DestroyInstance(b.instance, nil)
		b.instance = nil
	}
	return err
}

func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

func clamp(v, lo, hi uint32) uint32 {
	return max(lo, min(v, hi))
}
