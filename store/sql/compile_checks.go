package sqlstore

import "github.com/goliatone/go-compliance-connector/core"

var (
	_ core.TokenStore = (*TokenStore)(nil)
	_ core.TokenStore = (*CachedTokenStore)(nil)
)
