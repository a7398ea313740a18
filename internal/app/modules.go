package app

import (
	"github.com/vk/rehydrator/internal/registry"
	"github.com/vk/rehydrator/modules/camerarig"
	"github.com/vk/rehydrator/modules/props"
)

// coreModules is the definitive list of all class modules that are compiled
// into the rehydrator binary. Manifests add to these at startup.
var coreModules = []registry.Module{
	&props.Module{},
	&camerarig.Module{},
}
