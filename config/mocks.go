package config

import (
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/log"
)

type ConfigMock struct {
	mock.Mock
}

func NewConfigMock() *ConfigMock {
	return &ConfigMock{}
}

func (o *ConfigMock) Default() *ConfigMock {
	o.On("SchemaUpdateInterval").Return(10 * time.Second)
	o.On("Naming").Return(NamingConventionFn(NewDefaultNaming))
	o.On("SupportedOperations").Return(AllOperations)
	o.On("UnknownOperatorPolicy").Return(filter.NoMatch)
	o.On("Logger").Return(log.NewZapLogger(zap.NewExample()))
	return o
}

func (o *ConfigMock) SchemaUpdateInterval() time.Duration {
	args := o.Called()
	return args.Get(0).(time.Duration)
}

func (o *ConfigMock) Naming() NamingConventionFn {
	args := o.Called()
	return args.Get(0).(NamingConventionFn)
}

func (o *ConfigMock) SupportedOperations() Operations {
	args := o.Called()
	return args.Get(0).(Operations)
}

func (o *ConfigMock) UnknownOperatorPolicy() filter.UnknownOperatorPolicy {
	args := o.Called()
	return args.Get(0).(filter.UnknownOperatorPolicy)
}

func (o *ConfigMock) Logger() log.Logger {
	args := o.Called()
	return args.Get(0).(log.Logger)
}
