// Package events maintains the table of event callbacks registered
// against a running engine and routes incoming event URLs to them.
//
// A callback is keyed by a short tag, the portion of the registration
// tag up to the first "?". The query section of a tag may carry
// {{attr}} macros that the engine expands when it fires the event, so
// only the short tag is stable enough to match on. Registering a tag
// arms the callback inside the engine with ensight.objs.addcallback
// and records the returned callback id so the registration can later
// be torn down with ensight.objs.removecallback.
//
// The first successful registration activates event delivery: the
// registry installs its Dispatch method as the stream sink and starts
// the server-side event stream. Dispatched URLs are matched against
// the registered short tags in registration order and the first match
// wins. URLs that match no registration are dropped with a debug log
// line rather than treated as errors, since the engine may still emit
// events for callbacks that were just removed.
package events
