package correlationstore

import "github.com/careerdocs/pipeline/internal/application/registry"

var _ registry.Store = (*Store)(nil)
