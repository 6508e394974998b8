// Package script runs sandboxed Lua scripts against the event bus, the
// state store and the timer registry.
//
// Each Script owns one Lua state and one goroutine. Bus deliveries and
// timer firings never touch the Lua state directly: they are queued to the
// script's mailbox and run in order on its goroutine. A script sees these
// globals:
//
//	on(name, fn [, priority])  subscribe; returns an id for off
//	off(id)                    unsubscribe
//	emit(name [, data])        publish on the bus
//	get(path)                  read from the state store
//	set(path, value)           write to the state store
//	every(name, ms, fn)        named interval
//	after(name, ms, fn)        named timeout
//	cancel(name)               clear a named interval or timeout
//	log(msg [, level])         write to the host logger
//
// Timer names are private to the script that created them.
package script
