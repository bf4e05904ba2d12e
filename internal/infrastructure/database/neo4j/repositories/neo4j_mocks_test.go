package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"

	infraNeo4j "github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/neo4j"
)

// MockInfraDriver implements infraNeo4j.DriverInterface
type MockInfraDriver struct {
	mock.Mock
}

func (m *MockInfraDriver) ExecuteRead(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	args := m.Called(ctx, work)
	if fn, ok := args.Get(0).(func(context.Context, infraNeo4j.TransactionWork) (any, error)); ok {
		return fn(ctx, work)
	}
	return args.Get(0), args.Error(1)
}

func (m *MockInfraDriver) ExecuteWrite(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	args := m.Called(ctx, work)
	if fn, ok := args.Get(0).(func(context.Context, infraNeo4j.TransactionWork) (any, error)); ok {
		return fn(ctx, work)
	}
	return args.Get(0), args.Error(1)
}

func (m *MockInfraDriver) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockInfraDriver) Close() error {
	return m.Called().Error(0)
}

// statement is one recorded Run call.
type statement struct {
	cypher string
	params map[string]any
}

// recordingTx records statements and answers reads with canned records.
type recordingTx struct {
	mu         sync.Mutex
	statements []statement
	records    []*neo4j.Record
	// failOn makes Run fail for statements containing the substring.
	failOn string
}

func (t *recordingTx) Run(ctx context.Context, cypher string, params map[string]any) (infraNeo4j.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOn != "" && strings.Contains(cypher, t.failOn) {
		return nil, errors.New("neo4j: statement failed")
	}
	t.statements = append(t.statements, statement{cypher: cypher, params: params})
	return &MockResult{Records: t.records}, nil
}

func (t *recordingTx) matching(fragment string) []statement {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []statement
	for _, s := range t.statements {
		if strings.Contains(s.cypher, fragment) {
			out = append(out, s)
		}
	}
	return out
}

// MockResult implements infraNeo4j.Result over a fixed record list.
type MockResult struct {
	Records []*neo4j.Record
	Current int
}

func (m *MockResult) Next(ctx context.Context) bool {
	return m.Current < len(m.Records)
}

func (m *MockResult) Record() *neo4j.Record {
	if m.Current < len(m.Records) {
		rec := m.Records[m.Current]
		m.Current++
		return rec
	}
	return nil
}

func (m *MockResult) Err() error {
	return nil
}

func (m *MockResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

// NewRecord builds a record with values under keys.
func NewRecord(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   keys,
		Values: values,
	}
}

// SetupMockDriver wires a mock driver whose transactions run against tx.
func SetupMockDriver(tx infraNeo4j.Transaction) *MockInfraDriver {
	d := new(MockInfraDriver)
	run := func(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
		return work(tx)
	}
	d.On("ExecuteRead", mock.Anything, mock.Anything).Return(run)
	d.On("ExecuteWrite", mock.Anything, mock.Anything).Return(run)
	return d
}

//Personal.AI order the ending
