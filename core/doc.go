// Package core contains the connector callback contracts, token domain, and
// orchestration logic. Transport and persistence adapters depend on this
// package; core must not depend on them.
package core
