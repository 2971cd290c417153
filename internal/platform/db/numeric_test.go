package db

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestDecimalFromNumeric(t *testing.T) {
	require.Equal(t, "1234.56", Decimal(pgtype.Numeric{Int: big.NewInt(123456), Exp: -2, Valid: true}).StringFixed(2))
	require.True(t, Decimal(pgtype.Numeric{}).IsZero())
	require.True(t, Decimal(pgtype.Numeric{NaN: true, Valid: true}).IsZero())
}

func TestDatePtr(t *testing.T) {
	require.Nil(t, DatePtr(pgtype.Date{}))
	d := DatePtr(pgtype.Date{Time: time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local), Valid: true})
	require.NotNil(t, d)
	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *d)
	require.Nil(t, TimePtr(pgtype.Timestamptz{}))
}
