package webhook

import "strings"

// DevFilter decides whether an inbound text should be skipped by this
// deployment. It exists because a shared test number can be routed
// between a staging server and a local developer; the filter is a
// policy hook so deployments can swap the predicate without touching
// the handler.
type DevFilter func(deploymentType, text string) bool

// PrefixDevFilter skips messages carrying the given prefix when
// running as a staging deployment, leaving them for the developer's
// local instance.
func PrefixDevFilter(prefix string) DevFilter {
	return func(deploymentType, text string) bool {
		return deploymentType == "staging" && strings.HasPrefix(text, prefix)
	}
}

// NoDevFilter never skips.
func NoDevFilter() DevFilter {
	return func(string, string) bool { return false }
}
