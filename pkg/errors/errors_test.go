package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/ckdake/fitler/pkg/errors"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "record",
			ID:       "42",
		}
		assert.Equal(t, "record with ID 42 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("record", "7")
		wrapped := errors.Join(errors.New("failed"), base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("period", "2024-13", "month out of range")
		assert.Equal(t, "validation failed for field period: month out of range", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "no sources configured"}
		assert.Equal(t, "validation failed: no sources configured", err.Error())
	})

	t.Run("wrap helper", func(t *testing.T) {
		assert.Nil(t, pkgerrors.WrapValidation("x", nil))
		err := pkgerrors.WrapValidation("precedence", errors.New("duplicate source"))
		assert.True(t, pkgerrors.IsValidationError(err))
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"rate limited", 429, pkgerrors.ErrRateLimited},
		{"unauthorized", 401, pkgerrors.ErrAuthExpired},
		{"forbidden", 403, pkgerrors.ErrAuthExpired},
		{"server error", 503, pkgerrors.ErrSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgerrors.NewAPIError("strava", tt.status, "request failed")
			assert.True(t, errors.Is(err, tt.target))
			assert.Contains(t, err.Error(), "strava")
			assert.Contains(t, err.Error(), fmt.Sprint(tt.status))
		})
	}

	t.Run("client error matches nothing", func(t *testing.T) {
		err := pkgerrors.NewAPIError("strava", 404, "missing")
		assert.False(t, pkgerrors.IsRateLimited(err))
		assert.False(t, pkgerrors.IsSourceUnavailable(err))
	})

	t.Run("unwrap", func(t *testing.T) {
		base := errors.New("connection reset")
		err := pkgerrors.WrapAPI("garmin", 0, base)
		assert.ErrorIs(t, err, base)
	})
}

func TestSourceError(t *testing.T) {
	base := pkgerrors.NewAPIError("strava", 429, "slow down")
	err := pkgerrors.WrapSource("strava", "2024-08", base)

	assert.Contains(t, err.Error(), "strava failed for 2024-08")
	assert.True(t, pkgerrors.IsSourceUnavailable(err))
	assert.True(t, pkgerrors.IsRateLimited(err))

	var srcErr *pkgerrors.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "strava", srcErr.Source)
	assert.Nil(t, pkgerrors.WrapSource("strava", "2024-08", nil))
}

func TestLedgerCorruptionError(t *testing.T) {
	err := &pkgerrors.LedgerCorruptionError{Source: "garmin", Period: "2024-05", Expected: 3}
	assert.True(t, pkgerrors.IsLedgerCorruption(err))
	assert.Contains(t, err.Error(), "recorded 3 links, store has 0")
}

func TestConflictError(t *testing.T) {
	err := &pkgerrors.ConflictError{
		RecordID: 12,
		Field:    "equipment",
		Kept:     "Road Bike",
		KeptBy:   "strava",
		Rejected: "Gravel Bike",
		Source:   "ridewithgps",
	}
	assert.True(t, errors.Is(err, pkgerrors.ErrMergeConflict))
	assert.Contains(t, err.Error(), "record 12 field equipment")

	err.RecordID = 0
	assert.Contains(t, err.Error(), "new record")
}

func TestAmbiguousMatchError(t *testing.T) {
	err := &pkgerrors.AmbiguousMatchError{Source: "file", SourceID: "a.fit", Candidates: []int64{3, 9}, Chosen: 3}
	assert.True(t, errors.Is(err, pkgerrors.ErrAmbiguousMatch))
	assert.Contains(t, err.Error(), "chose 3")
}

func TestIOAndResourceErrors(t *testing.T) {
	t.Run("io", func(t *testing.T) {
		base := errors.New("permission denied")
		err := pkgerrors.WrapIO("read", "/data/strava.yaml", base)
		ioErr, ok := err.(*pkgerrors.IOError)
		require.True(t, ok)
		assert.Equal(t, "read", ioErr.Operation)
		assert.Equal(t, base, ioErr.Unwrap())
	})

	t.Run("resource", func(t *testing.T) {
		err := pkgerrors.WrapResource("upsert", "record", "5", errors.New("disk full"))
		assert.Equal(t, "failed to upsert record 5: disk full", err.Error())
		assert.Nil(t, pkgerrors.WrapResource("upsert", "record", "5", nil))
	})

	t.Run("parse", func(t *testing.T) {
		err := pkgerrors.WrapParse("yaml", "2024-08.yaml", errors.New("bad indent"))
		assert.Equal(t, "parse error in yaml file 2024-08.yaml: bad indent", err.Error())
	})
}

func TestRetryableAndReason(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		reason    string
	}{
		{"nil", nil, false, ""},
		{"rate limited", pkgerrors.NewAPIError("strava", 429, ""), true, "rate_limited"},
		{"auth", pkgerrors.WrapSource("strava", "", pkgerrors.NewAPIError("strava", 401, "")), false, "auth_expired"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "canceled"},
		{"unavailable", pkgerrors.WrapSource("garmin", "", errors.New("boom")), true, "unavailable"},
		{"corruption", &pkgerrors.LedgerCorruptionError{}, false, "ledger_corruption"},
		{"plain", errors.New("boom"), false, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, pkgerrors.IsRetryable(tt.err))
			assert.Equal(t, tt.reason, pkgerrors.Reason(tt.err))
		})
	}
}
