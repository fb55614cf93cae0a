package messagebus

import (
	"github.com/careerdocs/pipeline/internal/application/dispatch"
	"github.com/careerdocs/pipeline/internal/application/publisher"
	"github.com/careerdocs/pipeline/internal/application/refill"
)

var (
	_ publisher.Bus  = (*Bus)(nil)
	_ dispatch.Bus   = (*Bus)(nil)
	_ refill.Depther = (*Bus)(nil)
)
