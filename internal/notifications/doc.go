// Package notifications delivers reconcile events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set. Post
// and error notifications can be toggled independently; TestNotification and
// run summaries always go out when a topic exists.
//
// Extend this package if you need alternative transports; reconcile code
// depends only on the simple Service interface.
package notifications
