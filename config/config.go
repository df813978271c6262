package config

import (
	"time"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/log"
)

type Config interface {
	SchemaUpdateInterval() time.Duration
	Naming() NamingConventionFn
	SupportedOperations() Operations
	UnknownOperatorPolicy() filter.UnknownOperatorPolicy
	Logger() log.Logger
}
