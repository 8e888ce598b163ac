package drift

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftwatch/methods"
	"driftwatch/table"
)

func TestTracer_NilIsSafe(t *testing.T) {
	var tr *Tracer
	ctx, span := tr.startRun(context.Background(), "fit", 3)
	assert.NotNil(t, ctx)
	assert.Nil(t, span)
	tr.endRun(ctx, span, time.Now(), 10, 2, nil)
}

func TestTracer_RecordsAgainstGlobalProviders(t *testing.T) {
	tr, err := NewTracer()
	require.NoError(t, err)

	calc, err := NewCalculator([]FeatureSpec{
		{Name: "score", Kind: table.Continuous, Methods: []string{methods.NameWasserstein}},
	}, WithTracer(tr), WithLogger(quietLogger()))
	require.NoError(t, err)

	fitted, err := calc.Fit(context.Background(), uniformTable(t, "score", 200, 0, 1, 1))
	require.NoError(t, err)

	rs, err := fitted.Calculate(context.Background(), uniformTable(t, "score", 200, 0, 1, 2))
	require.NoError(t, err)
	assert.NotEmpty(t, rs.Results)
}
