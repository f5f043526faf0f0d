package postgis

import "github.com/aeris-platform/aeris/internal/store"

var _ store.Store = (*Store)(nil)
