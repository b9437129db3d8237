package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/shape"
)

type svc struct {
	Name string
	Port int
}

func TestSolveSimpleFields(t *testing.T) {
	s := shape.Of[svc]()
	sc, err := BuildSchema(s)
	require.NoError(t, err)

	results := sc.Solve([]string{"Name", "Port", "bogus"}, nil)
	require.Equal(t, OutcomeResolved, results[0].Outcome)
	require.Equal(t, OutcomeResolved, results[1].Outcome)
	require.Equal(t, OutcomeUnresolved, results[2].Outcome)
}

type password struct {
	Password string
}

type tcpAuth struct {
	Port int
}

type config struct {
	Name string
	Auth inner `facet:"flatten"`
}

type inner struct {
	Password string
	Port     int
}

func TestFlattenResolvesNestedKeys(t *testing.T) {
	s := shape.Of[config]()
	sc, err := BuildSchema(s)
	require.NoError(t, err)

	results := sc.Solve([]string{"Name", "Password", "Port"}, nil)
	for _, r := range results {
		require.Equal(t, OutcomeResolved, r.Outcome, r.Key)
	}
}
