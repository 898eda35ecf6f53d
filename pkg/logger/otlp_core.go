package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// OTLPCore batches entries and posts them to a collector's OTLP/HTTP logs
// receiver as JSON.
type OTLPCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
	sink   *otlpSink
}

type otlpSink struct {
	url         string
	serviceName string
	client      *http.Client
	batchSize   int

	mu     sync.Mutex
	buffer []otlpRecord

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

type otlpValue map[string]any

type otlpAttr struct {
	Key   string    `json:"key"`
	Value otlpValue `json:"value"`
}

type otlpRecord struct {
	TimeUnixNano         string     `json:"timeUnixNano"`
	ObservedTimeUnixNano string     `json:"observedTimeUnixNano"`
	SeverityNumber       int32      `json:"severityNumber"`
	SeverityText         string     `json:"severityText"`
	Body                 otlpValue  `json:"body"`
	Attributes           []otlpAttr `json:"attributes,omitempty"`
	TraceID              string     `json:"traceId,omitempty"`
	SpanID               string     `json:"spanId,omitempty"`
}

// OTLPEndpointURL turns a collector host:port into the logs URL. The gRPC
// port 4317 is swapped for the HTTP receiver on 4318.
func OTLPEndpointURL(endpoint string) string {
	host, port, err := net.SplitHostPort(endpoint)
	if err == nil && port == "4317" {
		endpoint = net.JoinHostPort(host, "4318")
	}
	return "http://" + endpoint + "/v1/logs"
}

// NewOTLPCore starts the flush loop. It returns nil when no endpoint is set.
func NewOTLPCore(cfg *Config, level zapcore.LevelEnabler) *OTLPCore {
	if cfg == nil || cfg.OTLPEndpoint == "" {
		return nil
	}

	batchSize := cfg.OTLPBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	interval := cfg.OTLPBatchInterval
	if interval <= 0 {
		interval = time.Second
	}

	sink := &otlpSink{
		url:         OTLPEndpointURL(cfg.OTLPEndpoint),
		serviceName: cfg.ServiceName,
		client:      &http.Client{Timeout: 5 * time.Second},
		batchSize:   batchSize,
		buffer:      make([]otlpRecord, 0, batchSize),
		stop:        make(chan struct{}),
	}
	sink.wg.Add(1)
	go sink.loop(interval)

	return &OTLPCore{LevelEnabler: level, sink: sink}
}

func (c *OTLPCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &OTLPCore{LevelEnabler: c.LevelEnabler, fields: merged, sink: c.sink}
}

func (c *OTLPCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *OTLPCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	rec := otlpRecord{
		TimeUnixNano:         fmt.Sprint(ent.Time.UnixNano()),
		ObservedTimeUnixNano: fmt.Sprint(time.Now().UnixNano()),
		SeverityNumber:       severity(ent.Level),
		SeverityText:         ent.Level.CapitalString(),
		Body:                 otlpValue{"stringValue": ent.Message},
	}
	if id, ok := enc.Fields["trace_id"].(string); ok {
		rec.TraceID = id
		delete(enc.Fields, "trace_id")
	}
	if id, ok := enc.Fields["span_id"].(string); ok {
		rec.SpanID = id
		delete(enc.Fields, "span_id")
	}
	if ent.LoggerName != "" {
		enc.Fields["logger"] = ent.LoggerName
	}
	if ent.Caller.Defined {
		enc.Fields["caller"] = ent.Caller.TrimmedPath()
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.Attributes = append(rec.Attributes, otlpAttr{Key: k, Value: toValue(enc.Fields[k])})
	}

	if c.sink.add(rec) {
		go c.sink.flush()
	}
	return nil
}

func (c *OTLPCore) Sync() error {
	return c.sink.flush()
}

// Close stops the flush loop and sends what is left
func (c *OTLPCore) Close() error {
	c.sink.once.Do(func() { close(c.sink.stop) })
	c.sink.wg.Wait()
	return c.sink.flush()
}

func (s *otlpSink) add(rec otlpRecord) (full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, rec)
	return len(s.buffer) >= s.batchSize
}

func (s *otlpSink) loop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.flush(); err != nil {
				fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			}
		case <-s.stop:
			return
		}
	}
}

func (s *otlpSink) flush() error {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return nil
	}
	records := s.buffer
	s.buffer = make([]otlpRecord, 0, s.batchSize)
	s.mu.Unlock()

	payload := map[string]any{
		"resourceLogs": []any{map[string]any{
			"resource": map[string]any{
				"attributes": []otlpAttr{
					{Key: "service.name", Value: otlpValue{"stringValue": s.serviceName}},
					{Key: "service.namespace", Value: otlpValue{"stringValue": "noctra"}},
				},
			},
			"scopeLogs": []any{map[string]any{
				"scope":      map[string]string{"name": "go.uber.org/zap"},
				"logRecords": records,
			}},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode otlp logs: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build otlp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("export otlp logs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("export otlp logs: status %d", resp.StatusCode)
	}
	return nil
}

func severity(level zapcore.Level) int32 {
	switch level {
	case zapcore.DebugLevel:
		return 5
	case zapcore.InfoLevel:
		return 9
	case zapcore.WarnLevel:
		return 13
	case zapcore.ErrorLevel:
		return 17
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return 21
	default:
		return 0
	}
}

func toValue(v any) otlpValue {
	switch x := v.(type) {
	case string:
		return otlpValue{"stringValue": x}
	case bool:
		return otlpValue{"boolValue": x}
	case int:
		return otlpValue{"intValue": fmt.Sprint(x)}
	case int64:
		return otlpValue{"intValue": fmt.Sprint(x)}
	case int32:
		return otlpValue{"intValue": fmt.Sprint(x)}
	case uint64:
		return otlpValue{"intValue": fmt.Sprint(x)}
	case float64:
		return otlpValue{"doubleValue": x}
	case float32:
		return otlpValue{"doubleValue": float64(x)}
	case time.Time:
		return otlpValue{"stringValue": x.Format(time.RFC3339Nano)}
	case time.Duration:
		return otlpValue{"stringValue": x.String()}
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return otlpValue{"stringValue": fmt.Sprint(x)}
		}
		return otlpValue{"stringValue": string(b)}
	}
}
