// Package notifications delivers approval requests and run alerts via
// pluggable notifiers.
//
// Slack incoming webhooks and ntfy topics are supported; when neither is
// configured a no-op notifier is returned so pipeline code never branches on
// whether notifications are enabled. Dispatcher schedules delayed approval
// requests on background goroutines without retrying failed deliveries.
package notifications
