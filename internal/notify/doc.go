// Package notify publishes user notifications and analytics events on the
// event bus.
package notify
