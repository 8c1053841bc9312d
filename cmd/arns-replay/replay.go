package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "arns/core/errors"
	"arns/core/state"
	"arns/core/types"
	"arns/native/names"
)

const tracerName = "arns/cmd/arns-replay"

// Summary describes the outcome of a replay.
type Summary struct {
	Applied  int
	Rejected int
	Height   uint64
}

// seedBalances credits the script's genesis balances.
func seedBalances(reg *state.Registry, balances map[string]string, engine *names.Engine) error {
	treasury := engine.Config().Treasury
	for _, key := range sortedKeys(balances) {
		addr, err := resolveAddress(key, treasury)
		if err != nil {
			return fmt.Errorf("balance %q: %w", key, err)
		}
		amount, ok := new(big.Int).SetString(balances[key], 10)
		if !ok {
			return fmt.Errorf("balance %q: invalid amount %q", key, balances[key])
		}
		if err := reg.SetBalance(addr, amount); err != nil {
			return err
		}
	}
	return nil
}

// replay runs every step in order. Rejected commands are logged and leave the
// registry unchanged; only configuration or state faults abort the run. Each
// step is traced as a child of a single replay span.
func replay(ctx context.Context, logger *slog.Logger, engine *names.Engine, reg *state.Registry, steps []Step) (*state.Registry, Summary, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "replay", trace.WithAttributes(attribute.Int("arns.steps", len(steps))))
	defer span.End()

	var summary Summary
	for i, step := range steps {
		next, err := replayStep(ctx, tracer, logger, engine, reg, i, step, &summary)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, summary, err
		}
		reg = next
	}
	span.SetAttributes(
		attribute.Int("arns.applied", summary.Applied),
		attribute.Int("arns.rejected", summary.Rejected),
		attribute.Int("arns.records", len(reg.RecordNames())),
		attribute.Int("arns.auctions", len(reg.AuctionNames())),
	)
	return reg, summary, nil
}

func replayStep(ctx context.Context, tracer trace.Tracer, logger *slog.Logger, engine *names.Engine, reg *state.Registry, i int, step Step, summary *Summary) (*state.Registry, error) {
	_, span := tracer.Start(ctx, "replay."+step.Command, trace.WithAttributes(
		attribute.Int("arns.step", i),
		attribute.Int64("arns.height", int64(step.Height)),
		attribute.String("arns.name", step.Name),
	))
	defer span.End()

	summary.Height = step.Height
	log := logger.With(slog.Int("step", i), slog.Uint64("height", step.Height), slog.String("command", step.Command))
	fail := func(err error) (*state.Registry, error) {
		err = fmt.Errorf("step %d: %w", i, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if step.Command == commandTick {
		next, adjustments, err := engine.Tick(reg, step.block())
		if err != nil {
			return fail(err)
		}
		span.SetAttributes(attribute.Int("arns.periods", len(adjustments)))
		log.Info("demand ticked", slog.Int("periods", len(adjustments)))
		return next, nil
	}

	caller, err := resolveAddress(step.Caller, engine.Config().Treasury)
	if err != nil {
		return fail(fmt.Errorf("caller: %w", err))
	}

	var (
		next  *state.Registry
		price *big.Int
	)
	if step.Command == commandCreateReservedName {
		next, err = engine.CreateReservedName(reg, caller, step.block(), step.Name, types.ReservedName{
			Target:       step.Target,
			EndTimestamp: step.EndTimestamp,
		})
	} else {
		cmd, cmdErr := step.command()
		if cmdErr != nil {
			return fail(cmdErr)
		}
		var res *names.Result
		next, res, err = engine.Process(reg, caller, step.block(), cmd)
		if res != nil {
			price = res.Price
		}
	}
	if err != nil {
		kind := coreerrors.KindOf(err)
		if kind == coreerrors.KindInvalidState {
			return fail(err)
		}
		summary.Rejected++
		span.SetAttributes(attribute.String("arns.outcome", kind.String()))
		span.AddEvent("rejected", trace.WithAttributes(attribute.String("error", err.Error())))
		log.Warn("command rejected",
			slog.String("name", step.Name),
			slog.String("kind", kind.String()),
			slog.Any("error", err))
		return reg, nil
	}
	summary.Applied++
	span.SetAttributes(attribute.String("arns.outcome", "applied"))
	attrs := []any{slog.String("name", step.Name), slog.String("caller", caller.String())}
	if price != nil {
		span.SetAttributes(attribute.String("arns.price", price.String()))
		attrs = append(attrs, slog.String("price", price.String()))
	}
	log.Info("command applied", attrs...)
	return next, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
