package app

import (
	"github.com/vk/expgrid/internal/registry"
	"github.com/vk/expgrid/modules/command"
	"github.com/vk/expgrid/modules/noop"
)

// coreModules are the job kinds compiled into the binary.
var coreModules = []registry.Module{
	&noop.Module{},
	&command.Module{},
}
