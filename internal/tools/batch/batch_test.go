package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr bool
	}{
		{name: "single string", input: "m1", want: []string{"m1"}},
		{name: "array of strings", input: []any{"m1", "m2", "m3"}, want: []string{"m1", "m2", "m3"}},
		{name: "string slice", input: []string{"m1", "m2"}, want: []string{"m1", "m2"}},
		{name: "nil input", input: nil, wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "empty array", input: []any{}, wantErr: true},
		{name: "array with non-string", input: []any{"m1", 123}, wantErr: true},
		{name: "array with empty string", input: []any{"m1", ""}, wantErr: true},
		{name: "invalid type", input: 123, wantErr: true},
		{name: "JSON string array", input: `["m1", "m2"]`, want: []string{"m1", "m2"}},
		{name: "JSON string empty array", input: `[]`, wantErr: true},
		{name: "invalid JSON string", input: `[invalid`, want: []string{`[invalid`}},
		{name: "bracketed text", input: `[test] id`, want: []string{`[test] id`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "messageIds")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStringOrArray_TooMany(t *testing.T) {
	ids := make([]any, MaxBatchSize+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}
	_, err := ParseStringOrArray(ids, "messageIds")
	assert.ErrorContains(t, err, "at most")
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		NewSuccessResult("m1", map[string]string{"subject": "Hello"}),
		NewSuccessResult("m2", "ok"),
		NewErrorResult("m3", errors.New("message not found")),
	}

	output, err := FormatResults(results)
	require.NoError(t, err)

	var br struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
		Results    []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &br))

	assert.Equal(t, 3, br.Total)
	assert.Equal(t, 2, br.Successful)
	assert.Equal(t, 1, br.Failed)
	require.Len(t, br.Results, 3)
	assert.Equal(t, "error", br.Results[2].Status)
	assert.Equal(t, "message not found", br.Results[2].Error)
}

func TestProcessBatch(t *testing.T) {
	ids := []string{"m1", "m2", "m3"}

	fn := func(_ context.Context, id string) (any, error) {
		if id == "m2" {
			return nil, errors.New("failed to process m2")
		}
		return "processed " + id, nil
	}

	results := ProcessBatch(context.Background(), ids, 2, fn)
	require.Len(t, results, 3)

	assert.Equal(t, NewSuccessResult("m1", "processed m1"), results[0])
	assert.Equal(t, NewErrorResult("m2", errors.New("failed to process m2")), results[1])
	assert.Equal(t, NewSuccessResult("m3", "processed m3"), results[2])
}

func TestProcessBatch_RespectsLimit(t *testing.T) {
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}

	var inFlight, peak atomic.Int32
	fn := func(_ context.Context, id string) (any, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return id, nil
	}

	results := ProcessBatch(context.Background(), ids, 3, fn)
	assert.Len(t, results, len(ids))
	assert.LessOrEqual(t, peak.Load(), int32(3))
	for i, r := range results {
		assert.Equal(t, ids[i], r.ID)
	}
}

func TestNewResults(t *testing.T) {
	ok := NewSuccessResult("m1", "done")
	assert.Equal(t, "success", ok.Status)
	assert.Empty(t, ok.Error)

	bad := NewErrorResult("m1", errors.New("boom"))
	assert.Equal(t, "error", bad.Status)
	assert.Equal(t, "boom", bad.Error)
	assert.Nil(t, bad.Result)
}
