package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
)

func mustDeltas(t *testing.T, data payroll.Dataset) []delta.Delta {
	t.Helper()
	deltas, err := delta.ComputeDeltas(data.Baseline, data.Current)
	require.NoError(t, err)
	return deltas
}
