package eegdev

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

// Opener constructs a plugin descriptor for a device, given the
// device-specific part of a devspec string (the part after the
// driver name and an optional ':'). Most reference plugins ignore
// args entirely.
type Opener func(args string) (*plugin.Descriptor, error)

var (
	registryMu   sync.Mutex
	registry     = map[string]Opener{}
	defaultOrder []string
)

// Register adds a driver under name to the process-wide registry so
// Open(name + ":" + args) and Open("any") can find it. It substitutes
// for the original library's dynamic-object plugin loader: drivers
// are linked in by importing their package for side effects instead
// of being discovered on EEGDEV_PLUGINS_DIR at run time.
//
// priority controls the order "any" tries drivers in; lower values
// are tried first. Calling Register twice with the same name panics,
// the same way re-registering a flag or a sql driver does elsewhere
// in the ecosystem.
func Register(name string, priority int, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("eegdev: driver %q already registered", name))
	}
	registry[name] = open
	priorities[name] = priority

	defaultOrder = append(defaultOrder, name)
	sort.SliceStable(defaultOrder, func(i, j int) bool {
		return priorityOf(defaultOrder[i]) < priorityOf(defaultOrder[j])
	})
}

var priorities = map[string]int{}

func priorityOf(name string) int { return priorities[name] }

func lookupOpener(name string) (Opener, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	open, ok := registry[name]
	return open, ok
}

func defaultDriverOrder() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	return append([]string(nil), defaultOrder...)
}
