package registry

import (
	"github.com/careerdocs/pipeline/internal/application/consumer"
	"github.com/careerdocs/pipeline/internal/application/publisher"
)

var (
	_ consumer.Registry  = (*Registry)(nil)
	_ publisher.Registry = (*Registry)(nil)
)
