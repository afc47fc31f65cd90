// Package options implements option passthrough (spec §4.9): turning
// a plugin's declared (name, default) option list plus a
// configuration lookup into the ordered optv array handed to the
// plugin, and scanning that array back by name.
package options

import "github.com/mmlabs-mindmaze/eegdev-go/plugin"

// Build collects effective option values for opts, in declaration
// order, consulting lookup for an override and falling back to each
// option's declared default. The result is a flat (name, value, ...)
// sequence suitable for Getopt.
func Build(opts []plugin.OptName, lookup func(name string) (string, bool)) []string {
	optv := make([]string, 0, 2*len(opts))
	for _, o := range opts {
		val := o.DefValue
		if lookup != nil {
			if v, ok := lookup(o.Name); ok {
				val = v
			}
		}
		optv = append(optv, o.Name, val)
	}
	return optv
}

// Getopt scans optv (as produced by Build) for name and returns its
// value, or defValue if name is not present.
func Getopt(name, defValue string, optv []string) string {
	for i := 0; i+1 < len(optv); i += 2 {
		if optv[i] == name {
			return optv[i+1]
		}
	}
	return defValue
}
