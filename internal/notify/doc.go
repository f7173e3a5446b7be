// Package notify fans monitoring alerts out to chat and error-tracking
// services.
//
// The poll loops only know the [Notifier] contract. [Broadcaster] implements
// it by queueing each message and delivering it to every configured
// [Channel] from a single background goroutine, so a slow or failing
// service never stalls monitoring. A failing channel is logged and counted;
// the remaining channels are still tried.
//
// Built-in channels:
//
//   - [Slack]: chat.postMessage style JSON webhook
//   - [HipChat]: room notification API
//   - [Sentry]: captures each message as a Sentry event
//
// Every channel honours a log-only mode in which messages are logged at
// debug level instead of being delivered.
package notify
