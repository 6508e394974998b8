// Package topic matches event names against wildcard patterns.
//
// Names split into segments on "." and ":", so "state:user.name" is
// [state user name]. In a pattern "*" stands for one segment and "**" for
// any number of them:
//
//	state:user.*    state:user.name, not state:user.address.city
//	state:**        every state event, and "state" itself
//	*:intervalSet   timer:intervalSet
//
// A Matcher holds many patterns and returns all that match a name.
package topic
