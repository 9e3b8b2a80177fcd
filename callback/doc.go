// Package callback delivers session and token notifications to the remote
// connector callback API. Requests are JSON bodies signed with an RS256 JWT.
package callback
