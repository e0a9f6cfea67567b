package tracing

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerDisabledInstallsNoop(t *testing.T) {
	tracer, closeFn, err := InitTracer(Config{})
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, opentracing.NoopTracer{}, tracer)
	assert.IsType(t, opentracing.NoopTracer{}, opentracing.GlobalTracer())
}

func TestStartSpanNestsUnderParent(t *testing.T) {
	mt := mocktracer.New()
	opentracing.SetGlobalTracer(mt)
	t.Cleanup(func() { opentracing.SetGlobalTracer(opentracing.NoopTracer{}) })

	parent, ctx := StartSpan(context.Background(), "trading_cycle")
	child, _ := StartSpan(ctx, "binance.klines")
	Fail(child, assert.AnError)
	child.Finish()
	parent.Finish()

	spans := mt.FinishedSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "binance.klines", spans[0].OperationName)
	assert.Equal(t, spans[1].SpanContext.SpanID, spans[0].ParentID)
	assert.Equal(t, true, spans[0].Tag("error"))
}
