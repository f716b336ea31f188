package app

import (
	"github.com/pagemill/pagemill/internal/registry"
	"github.com/pagemill/pagemill/steps/artifact"
	"github.com/pagemill/pagemill/steps/checkout"
	"github.com/pagemill/pagemill/steps/command"
	"github.com/pagemill/pagemill/steps/docs"
	"github.com/pagemill/pagemill/steps/pages"
	"github.com/pagemill/pagemill/steps/webhook"
)

// coreModules are the built-in step handlers registered when the caller
// does not supply its own module set (tests do).
var coreModules = []registry.Module{
	&checkout.Module{},
	&command.Module{},
	&docs.Module{},
	&artifact.Module{},
	&pages.Module{},
	&webhook.Module{},
}
