package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"arns/core/state"
	"arns/crypto"
	"arns/native/names"
	"arns/storage"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testScript = `balances:
  alice: "1000000000"
  bob: "1000000000"
steps:
  - height: 1
    timestamp: 1700000000
    caller: alice
    command: buyRecord
    name: test-buy-record
    type: permabuy
    contractTxId: alice-contract
  - height: 2
    timestamp: 1700000002
    caller: bob
    command: buyRecord
    name: test-buy-record
  - height: 3
    timestamp: 1700000004
    caller: treasury
    command: createReservedName
    name: brand
    target: bob
  - height: 10
    timestamp: 1700000020
    caller: alice
    command: submitAuctionBid
    name: new-auction
  - height: 40
    timestamp: 1700000080
    caller: bob
    command: submitAuctionBid
    name: new-auction
    bid: "105_840_000"
  - height: 800
    timestamp: 1700001600
    command: tick
`

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func newReplayEngine(t *testing.T) *names.Engine {
	t.Helper()
	engine, err := names.NewEngine(names.DefaultConfig(crypto.DeriveAddress("replay-treasury")))
	require.NoError(t, err)
	return engine
}

func runScript(t *testing.T, script *Script) (*state.Registry, Summary) {
	t.Helper()
	engine := newReplayEngine(t)
	reg, err := state.NewRegistry(state.Genesis{})
	require.NoError(t, err)
	require.NoError(t, seedBalances(reg, script.Balances, engine))
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg, summary, err := replay(context.Background(), logger, engine, reg, script.Steps)
	require.NoError(t, err)
	return reg, summary
}

func TestLoadScriptAndReplay(t *testing.T) {
	script, err := LoadScript(writeScript(t, testScript))
	require.NoError(t, err)
	require.Len(t, script.Steps, 6)

	reg, summary := runScript(t, script)
	require.Equal(t, 4, summary.Applied)
	require.Equal(t, 1, summary.Rejected)
	require.Equal(t, uint64(800), summary.Height)

	record, ok := reg.GetRecord("new-auction")
	require.True(t, ok)
	require.Equal(t, "105840000", record.PurchasePrice.String())
	_, ok = reg.GetReserved("brand")
	require.True(t, ok)
	require.Equal(t, uint64(1), reg.DemandFactoring.CurrentPeriod)
	require.Equal(t, uint64(2), reg.DemandFactoring.TrailingPeriodPurchases[0])
}

func TestReplayIsDeterministic(t *testing.T) {
	script, err := LoadScript(writeScript(t, testScript))
	require.NoError(t, err)

	first, _ := runScript(t, script)
	second, _ := runScript(t, script)
	firstDigest, err := state.Digest(first)
	require.NoError(t, err)
	secondDigest, err := state.Digest(second)
	require.NoError(t, err)
	require.Equal(t, firstDigest, secondDigest)

	db := state.NewStore(storageForTest(t), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	saved, err := db.Save(800, first)
	require.NoError(t, err)
	require.Equal(t, firstDigest, saved)
}

func spanAttribute(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestReplayTracesEachStep(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	script, err := LoadScript(writeScript(t, testScript))
	require.NoError(t, err)
	runScript(t, script)

	spans := recorder.Ended()
	require.Len(t, spans, len(script.Steps)+1)
	root := spans[len(spans)-1]
	require.Equal(t, "replay", root.Name())
	applied, ok := spanAttribute(root, "arns.applied")
	require.True(t, ok)
	require.Equal(t, int64(4), applied.AsInt64())

	for _, span := range spans[:len(spans)-1] {
		require.Equal(t, root.SpanContext().SpanID(), span.Parent().SpanID())
	}
	require.Equal(t, "replay.buyRecord", spans[0].Name())
	outcome, ok := spanAttribute(spans[0], "arns.outcome")
	require.True(t, ok)
	require.Equal(t, "applied", outcome.AsString())

	// bob cannot buy the name alice already holds.
	outcome, ok = spanAttribute(spans[1], "arns.outcome")
	require.True(t, ok)
	require.Equal(t, "conflict", outcome.AsString())
	require.Equal(t, "replay.tick", spans[len(spans)-2].Name())
}

func TestLoadScriptRejectsBadScripts(t *testing.T) {
	cases := map[string]string{
		"unknown command": "steps:\n  - height: 1\n    command: burn\n",
		"unordered":       "steps:\n  - height: 5\n    command: tick\n  - height: 4\n    command: tick\n",
		"bad bid":         "steps:\n  - height: 1\n    command: submitAuctionBid\n    name: x\n    bid: lots\n",
		"unknown field":   "steps:\n  - height: 1\n    command: tick\n    colour: red\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScript(writeScript(t, contents))
			require.Error(t, err)
		})
	}
}

func TestResolveAddress(t *testing.T) {
	treasury := crypto.DeriveAddress("replay-treasury")
	got, err := resolveAddress("treasury", treasury)
	require.NoError(t, err)
	require.True(t, got.Equal(treasury))

	alice := crypto.DeriveAddress("alice")
	got, err = resolveAddress(alice.String(), treasury)
	require.NoError(t, err)
	require.True(t, got.Equal(alice))

	got, err = resolveAddress("alice", treasury)
	require.NoError(t, err)
	require.True(t, got.Equal(alice))

	_, err = resolveAddress(" ", treasury)
	require.Error(t, err)
}

func storageForTest(t *testing.T) storage.Database {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return db
}
