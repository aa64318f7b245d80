package shaders

import (
	_ "embed"
)

//go:embed init_groups.wgsl
var InitGroupsWGSL string

//go:embed init_rays.wgsl
var InitRaysWGSL string

//go:embed init_image.wgsl
var InitImageWGSL string

//go:embed process.wgsl
var ProcessWGSL string

//go:embed radix_sort.wgsl
var RadixSortWGSL string

//go:embed count_groups.wgsl
var CountGroupsWGSL string

//go:embed update_groups.wgsl
var UpdateGroupsWGSL string

//go:embed set_ray_index.wgsl
var SetRayIndexWGSL string

//go:embed update_image.wgsl
var UpdateImageWGSL string

//go:embed fullscreen.wgsl
var FullscreenWGSL string
