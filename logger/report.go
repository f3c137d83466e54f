package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsFetch     int64
	errorsAggregate int64
	warnsFetch      int64
	warnsAggregate  int64
	bookReads       int64
	tapeReads       int64
	quoteReads      int64
	updatesSent     int64
	ticksSkipped    int64
	channels        sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	if strings.Contains(component, "feed") || strings.Contains(component, "poller") {
		atomic.AddInt64(&warnsFetch, 1)
	} else {
		atomic.AddInt64(&warnsAggregate, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "feed") || strings.Contains(component, "poller") {
		atomic.AddInt64(&errorsFetch, 1)
	} else {
		atomic.AddInt64(&errorsAggregate, 1)
	}
}

func IncrementBookRead(size int) {
	atomic.AddInt64(&bookReads, 1)
	recordChannel("book_rest", size)
}

func IncrementTapeRead(size int) {
	atomic.AddInt64(&tapeReads, 1)
	recordChannel("tape_rest", size)
}

func IncrementQuoteRead(size int) {
	atomic.AddInt64(&quoteReads, 1)
	recordChannel("quote_rest", size)
}

func IncrementUpdateSent() {
	atomic.AddInt64(&updatesSent, 1)
}

func IncrementTickSkipped() {
	atomic.AddInt64(&ticksSkipped, 1)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

// StartReport begins periodic logging of system and feed statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	memUsedMB := int64(0)
	if memStats != nil {
		memUsedMB = int64(memStats.Used) / 1024 / 1024
	}

	fields := Fields{
		"errors_fetch":     atomic.LoadInt64(&errorsFetch),
		"errors_aggregate": atomic.LoadInt64(&errorsAggregate),
		"warns_fetch":      atomic.LoadInt64(&warnsFetch),
		"warns_aggregate":  atomic.LoadInt64(&warnsAggregate),
		"book_reads":       atomic.LoadInt64(&bookReads),
		"tape_reads":       atomic.LoadInt64(&tapeReads),
		"quote_reads":      atomic.LoadInt64(&quoteReads),
		"updates_sent":     atomic.LoadInt64(&updatesSent),
		"ticks_skipped":    atomic.LoadInt64(&ticksSkipped),
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        memUsedMB,
		"channels":         channelData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memUsedMB))},
		{MetricName: aws.String("ErrorsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsFetch)))},
		{MetricName: aws.String("ErrorsAggregate"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsAggregate)))},
		{MetricName: aws.String("WarnsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsFetch)))},
		{MetricName: aws.String("BookReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&bookReads)))},
		{MetricName: aws.String("TapeReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&tapeReads)))},
		{MetricName: aws.String("QuoteReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&quoteReads)))},
		{MetricName: aws.String("UpdatesSent"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&updatesSent)))},
		{MetricName: aws.String("TicksSkipped"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&ticksSkipped)))},
	}
	publishMetrics(ctx, data)
}
