// Package sheets adapts the Google Sheets v4 API to the small row-oriented
// Table interface used by the performance source and the result sink.
//
// Credentials come from either a service account JSON file or an OAuth
// client with an offline refresh token. A custom base URL (used by tests and
// emulators) may be supplied, in which case unauthenticated access is allowed
// when no credentials are configured.
package sheets
