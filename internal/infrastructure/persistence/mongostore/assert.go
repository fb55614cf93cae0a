package mongostore

import (
	"github.com/careerdocs/pipeline/internal/application/admission"
	"github.com/careerdocs/pipeline/internal/application/consumer"
	"github.com/careerdocs/pipeline/internal/application/dispatch"
	"github.com/careerdocs/pipeline/internal/application/publisher"
)

var (
	_ admission.Repository = (*Store)(nil)
	_ publisher.Repository = (*Store)(nil)
	_ consumer.Repository  = (*Store)(nil)
	_ dispatch.Repository  = (*Store)(nil)
)
