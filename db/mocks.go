package db

import (
	"github.com/stretchr/testify/mock"
)

type SessionMock struct {
	mock.Mock
}

func NewSessionMock() *SessionMock {
	return &SessionMock{}
}

func (o *SessionMock) Execute(query string, options *QueryOptions, values ...interface{}) error {
	args := o.Called(query, options, values)
	return args.Error(0)
}

func (o *SessionMock) ExecuteIter(query string, options *QueryOptions, values ...interface{}) (ResultSet, error) {
	args := o.Called(query, options, values)
	return args.Get(0).(ResultSet), args.Error(1)
}

type ResultMock struct {
	mock.Mock
}

// NewResultMock returns a result set with the given rows.
func NewResultMock(rows ...map[string]interface{}) *ResultMock {
	result := &ResultMock{}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	result.On("Values").Return(rows)
	result.On("PageState").Return("")
	return result
}

func (o *ResultMock) PageState() string {
	return o.Called().String(0)
}

func (o *ResultMock) Values() []map[string]interface{} {
	args := o.Called()
	return args.Get(0).([]map[string]interface{})
}
