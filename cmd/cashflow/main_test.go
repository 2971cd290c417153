package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow/internal/app"
	_ "github.com/cashflow-ai/cashflow/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
