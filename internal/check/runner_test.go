package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freemank1224/vibe-word-master/internal/config"
	"github.com/freemank1224/vibe-word-master/internal/supabase"
)

type stubCaller struct {
	results  []supabase.Result
	errs     []error
	payloads []supabase.StatsPayload
}

func (s *stubCaller) CallRecordStats(_ context.Context, payload supabase.StatsPayload) (supabase.Result, error) {
	i := len(s.payloads)
	s.payloads = append(s.payloads, payload)
	if i >= len(s.results) {
		return supabase.Result{}, fmt.Errorf("unexpected call %d", i+1)
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.results[i], err
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	}
}

func testConfig() *config.Check {
	return &config.Check{
		SupabaseURL:         "https://abc.supabase.co",
		AnonKey:             "opaque-key",
		RPCTimeout:          20 * time.Second,
		TimezoneOffsetHours: 8,
	}
}

func newTestRunner(caller Caller, cfg *config.Check) (*Runner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	runner := NewRunner(caller, cfg, out, zerolog.Nop()).WithClock(fixedClock())
	return runner, out
}

func TestRunGuardActive(t *testing.T) {
	caller := &stubCaller{
		results: []supabase.Result{
			{Status: 200, Body: `{"version":1}`},
			{Status: 400, Body: `{"message":"Cannot modify historical stats for date 2026-02-13"}`},
		},
	}
	runner, out := newTestRunner(caller, testConfig())

	outcome := runner.Run(context.Background())

	assert.Equal(t, Passed, outcome)
	assert.Contains(t, out.String(), "✅ RPC endpoint exists and signature is callable")
	assert.Contains(t, out.String(), "✅ Historical-write guard is active at DB layer")
	assert.Contains(t, out.String(), "HTTP 200")
	assert.Contains(t, out.String(), "HTTP 400")
}

func TestRunPayloadDates(t *testing.T) {
	caller := &stubCaller{
		results: []supabase.Result{
			{Status: 200, Body: `{}`},
			{Status: 400, Body: "Cannot modify historical stats for date"},
		},
	}
	runner, _ := newTestRunner(caller, testConfig())

	runner.Run(context.Background())

	require.Len(t, caller.payloads, 2)

	step1 := caller.payloads[0]
	assert.Empty(t, step1.TestDate, "step 1 lets the server pick today")
	assert.Equal(t, "2026-02-14", step1.ClientDate)
	assert.Equal(t, 1, step1.TestCount)
	assert.Equal(t, 1, step1.CorrectCount)
	assert.Equal(t, 1, step1.Points)
	assert.Equal(t, 8, step1.TimezoneOffsetHours)
	assert.Equal(t, 0, step1.ExpectedVersion)

	step2 := caller.payloads[1]
	assert.Equal(t, "2026-02-13", step2.TestDate, "step 2 targets one day in the past")
	assert.Equal(t, "2026-02-13", step2.ClientDate)
	assert.Equal(t, 8, step2.TimezoneOffsetHours)
}

func TestRunFunctionMissingStillRunsStepTwo(t *testing.T) {
	caller := &stubCaller{
		results: []supabase.Result{
			{Status: 404, Body: `{"message":"Could not find the function public.record_test_and_sync_stats(p_client_date, ...) in the schema cache"}`},
			{Status: 404, Body: `{"message":"Could not find the function"}`},
		},
	}
	runner, out := newTestRunner(caller, testConfig())

	outcome := runner.Run(context.Background())

	assert.Equal(t, Failed, outcome)
	assert.Contains(t, out.String(), "❌ RPC function signature not deployed as expected")
	assert.Len(t, caller.payloads, 2, "a failed step 1 must not skip step 2")
}

func TestRunGuardInconclusive(t *testing.T) {
	caller := &stubCaller{
		results: []supabase.Result{
			{Status: 200, Body: `{}`},
			{Status: 401, Body: `{"message":"JWT expired"}`},
		},
	}
	runner, out := newTestRunner(caller, testConfig())

	outcome := runner.Run(context.Background())

	assert.Equal(t, Inconclusive, outcome)
	assert.Contains(t, out.String(), "⚠️ Could not prove historical-write guard via anon key path")
	assert.Contains(t, out.String(), "auth/RLS constraints")
}

func TestRunTransportFailure(t *testing.T) {
	caller := &stubCaller{
		results: []supabase.Result{{}, {}},
		errs: []error{
			fmt.Errorf("%w: dial tcp: connection refused", supabase.ErrTransport),
			fmt.Errorf("%w: dial tcp: connection refused", supabase.ErrTransport),
		},
	}
	runner, out := newTestRunner(caller, testConfig())

	outcome := runner.Run(context.Background())

	assert.Equal(t, Failed, outcome)
	assert.Contains(t, out.String(), "❌ network error:")
	assert.True(t, errors.Is(caller.errs[0], supabase.ErrTransport))
}

func TestRunTruncatesBodyPreview(t *testing.T) {
	longBody := strings.Repeat("a", bodyPreviewLimit) + "OVERFLOW"
	caller := &stubCaller{
		results: []supabase.Result{
			{Status: 200, Body: longBody},
			{Status: 400, Body: "Cannot modify historical stats for date"},
		},
	}
	runner, out := newTestRunner(caller, testConfig())

	runner.Run(context.Background())

	assert.NotContains(t, out.String(), "OVERFLOW")
	assert.Contains(t, out.String(), strings.Repeat("a", bodyPreviewLimit))
}

func TestRunWarnsOnNonAnonRole(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "service_role"})
	key, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.AnonKey = key
	caller := &stubCaller{
		results: []supabase.Result{
			{Status: 200, Body: `{}`},
			{Status: 400, Body: "Cannot modify historical stats for date"},
		},
	}
	runner, out := newTestRunner(caller, cfg)

	runner.Run(context.Background())

	assert.Contains(t, out.String(), `API key role is "service_role"`)
}

func TestRunWarnsOnExpiredKey(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "anon",
		"exp":  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	})
	key, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.AnonKey = key
	caller := &stubCaller{
		results: []supabase.Result{
			{Status: 401, Body: `{}`},
			{Status: 401, Body: `{}`},
		},
	}
	runner, out := newTestRunner(caller, cfg)

	runner.Run(context.Background())

	assert.Contains(t, out.String(), "API key expired at")
}

func TestOutcomeExitCodes(t *testing.T) {
	assert.Equal(t, 0, Passed.ExitCode())
	assert.Equal(t, 2, Failed.ExitCode())
	assert.Equal(t, 3, Inconclusive.ExitCode())
}

func TestOutcomeSeverityOrdering(t *testing.T) {
	assert.Greater(t, int(Failed), int(Inconclusive))
	assert.Greater(t, int(Inconclusive), int(Passed))
}
